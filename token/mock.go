package token

import (
	"math/big"

	"github.com/bitfsorg/libsale-go/account"
)

// MockToken is a test double for Token.
// All function fields must be set before the corresponding method is called.
type MockToken struct {
	Addr           account.Address
	BalanceOfFn    func(holder account.Address) *big.Int
	AllowanceFn    func(owner, spender account.Address) *big.Int
	TransferFn     func(from, to account.Address, amount *big.Int) error
	TransferFromFn func(spender, from, to account.Address, amount *big.Int) error
	RefundFn       func(from, to account.Address, amount *big.Int) error
}

func (m *MockToken) Address() account.Address { return m.Addr }
func (m *MockToken) BalanceOf(holder account.Address) *big.Int {
	return m.BalanceOfFn(holder)
}
func (m *MockToken) Allowance(owner, spender account.Address) *big.Int {
	return m.AllowanceFn(owner, spender)
}
func (m *MockToken) Transfer(from, to account.Address, amount *big.Int) error {
	return m.TransferFn(from, to, amount)
}
func (m *MockToken) TransferFrom(spender, from, to account.Address, amount *big.Int) error {
	return m.TransferFromFn(spender, from, to, amount)
}
func (m *MockToken) Refund(from, to account.Address, amount *big.Int) error {
	return m.RefundFn(from, to, amount)
}
