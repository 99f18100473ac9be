package memstore

import (
	"testing"

	"github.com/park285/cheese-social/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		st := New()
		st.AddUsers(storetest.Users...)
		return st
	})
}
