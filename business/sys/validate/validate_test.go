package validate_test

import (
	"testing"

	"github.com/ardanlabs/ethnode/business/sys/validate"
)

func TestCheck(t *testing.T) {
	type account struct {
		Address string `json:"address" validate:"required,address"`
	}

	if err := validate.Check(account{Address: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"}); err != nil {
		t.Fatalf("Should accept a hex address: %v", err)
	}

	err := validate.Check(account{Address: "kennedy"})
	if !validate.IsFieldErrors(err) {
		t.Fatalf("Should get field errors for a bad address: %v", err)
	}

	fields := validate.GetFieldErrors(err).Fields()
	if _, exists := fields["address"]; !exists {
		t.Fatalf("Should name the json field in the error: %v", fields)
	}
}
