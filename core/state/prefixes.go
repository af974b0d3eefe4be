package state

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"fusionswap/native/fusion"
)

var (
	balancePrefix     = []byte("ledger/balance/")
	holdingPrefix     = []byte("ledger/holding/")
	holdingUsedPrefix = []byte("ledger/holding-used/")
	escrowPrefix      = []byte("fusion/escrow/")
	kvPrefix          = []byte("kv/")
)

func hashedKey(prefix []byte, parts ...[]byte) []byte {
	buf := make([]byte, 0, len(prefix)+64)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func balanceKey(owner, asset common.Address) []byte {
	return hashedKey(balancePrefix, owner.Bytes(), asset.Bytes())
}

func holdingKey(id common.Hash) []byte {
	return hashedKey(holdingPrefix, id.Bytes())
}

func holdingUsedKey(id common.Hash) []byte {
	return hashedKey(holdingUsedPrefix, id.Bytes())
}

func escrowKey(key fusion.EscrowKey) []byte {
	return hashedKey(escrowPrefix, key.Bytes())
}

func kvKey(key []byte) []byte {
	return hashedKey(kvPrefix, key)
}
