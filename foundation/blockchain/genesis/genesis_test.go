package genesis_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ethnode/foundation/blockchain/genesis"
	"github.com/ethereum/go-ethereum/common"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestLoad(t *testing.T) {
	t.Log("Given the need to load a genesis file.")
	{
		const doc = `{
			"chain_id": 1,
			"difficulty": 1,
			"gas_limit": 3141592,
			"gas_price": 1,
			"mining_reward": 5000,
			"balances": {"0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4": 1000000000000000000000000}
		}`

		path := filepath.Join(t.TempDir(), "genesis.json")
		if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
			t.Fatalf("\t%s\tShould be able to write the file: %v", failed, err)
		}

		gen, err := genesis.Load(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the file: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the file.", success)

		want, _ := new(big.Int).SetString("1000000000000000000000000", 10)
		addr := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")

		got := gen.Alloc()[addr]
		if got == nil || got.Cmp(want) != 0 {
			t.Fatalf("\t%s\tShould get the balance beyond 64 bits: got %v", failed, got)
		}
		t.Logf("\t%s\tShould get the balance beyond 64 bits.", success)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		gen  genesis.Genesis
	}{
		{"nodifficulty", genesis.Genesis{GasLimit: 1}},
		{"nogaslimit", genesis.Genesis{Difficulty: 1}},
		{"badaccount", genesis.Genesis{Difficulty: 1, GasLimit: 1, Balances: map[string]*big.Int{"kennedy": big.NewInt(1)}}},
		{"negative", genesis.Genesis{Difficulty: 1, GasLimit: 1, Balances: map[string]*big.Int{"0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4": big.NewInt(-1)}}},
	}

	t.Log("Given the need to reject genesis values a chain can't start from.")
	{
		for testID, tt := range tests {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s genesis.", testID, tt.name)
				{
					if err := tt.gen.Validate(); err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould get an error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get an error.", success, testID)
				}
			}

			t.Run(tt.name, f)
		}
	}
}
