package chainClient

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func Test_AddressTopic(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	topic := AddressTopic(addr)
	assert.Equal(t, make([]byte, 12), topic[:12])
	assert.Equal(t, addr.Bytes(), topic[12:])
}
