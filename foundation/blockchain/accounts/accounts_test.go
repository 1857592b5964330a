package accounts_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestRegistry(t *testing.T) {
	t.Log("Given the need to manage signing identities.")
	{
		t.Logf("\tTest 0:\tWhen loading keys from a folder.")
		{
			dir := t.TempDir()

			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to decode the key: %v", failed, err)
			}

			if err := crypto.SaveECDSA(filepath.Join(dir, "kennedy.ecdsa"), pk); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to save the key: %v", failed, err)
			}

			reg, err := accounts.Load(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the folder: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the folder.", success)

			addr := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")

			acct, err := reg.Resolve(addr)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to resolve the account: %v", failed, err)
			}
			if acct.Name != "kennedy" || !acct.Unlocked {
				t.Fatalf("\t%s\tTest 0:\tShould get an unlocked account named kennedy: %+v", failed, acct)
			}
			t.Logf("\t%s\tTest 0:\tShould get an unlocked account named kennedy.", success)

			if err := reg.Lock(addr); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to lock the account: %v", failed, err)
			}

			if _, err := reg.Key(addr); !errors.Is(err, accounts.ErrLockedAccount) {
				t.Fatalf("\t%s\tTest 0:\tShould not hand out the key of a locked account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not hand out the key of a locked account.", success)

			if err := reg.Unlock(addr); err != nil || !reg.IsUnlocked(addr) {
				t.Fatalf("\t%s\tTest 0:\tShould be able to unlock the account: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to unlock the account.", success)
		}

		t.Logf("\tTest 1:\tWhen using an unknown account.")
		{
			reg := accounts.New()
			addr := common.HexToAddress("0x01")

			if _, err := reg.Resolve(addr); !errors.Is(err, accounts.ErrUnknownAccount) {
				t.Fatalf("\t%s\tTest 1:\tShould get an unknown account error: %v", failed, err)
			}
			if err := reg.Unlock(addr); !errors.Is(err, accounts.ErrUnknownAccount) {
				t.Fatalf("\t%s\tTest 1:\tShould not unlock an unknown account: %v", failed, err)
			}
			if reg.IsUnlocked(addr) {
				t.Fatalf("\t%s\tTest 1:\tShould not report an unknown account unlocked.", failed)
			}
			if reg.Lookup(addr) != addr.Hex() {
				t.Fatalf("\t%s\tTest 1:\tShould get the address back as the name.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject an unknown account.", success)
		}

		t.Logf("\tTest 2:\tWhen listing accounts.")
		{
			reg := accounts.New()
			for _, name := range []string{"a", "b", "c"} {
				pk, err := crypto.GenerateKey()
				if err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to generate a key: %v", failed, err)
				}
				reg.Add(name, pk, name != "c")
			}

			list := reg.List()
			if len(list) != 3 {
				t.Fatalf("\t%s\tTest 2:\tShould list three accounts: got %d", failed, len(list))
			}
			for i := 1; i < len(list); i++ {
				if list[i-1].Address.Cmp(list[i].Address) >= 0 {
					t.Fatalf("\t%s\tTest 2:\tShould list accounts sorted by address.", failed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould list three accounts sorted by address.", success)
		}
	}
}
