/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountLocked     = errors.New("account is locked")
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrNegativeAmount    = errors.New("amount must not be negative")
)

// Account holds the balances of a single client.
type Account struct {
	ClientID  uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns an empty, unlocked account for clientID.
func NewAccount(clientID uint16) *Account {
	return &Account{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// computeTotal keeps Total equal to Available + Held.
func (a *Account) computeTotal() {
	a.Total = a.Available.Add(a.Held)
}

// canWithdraw checks if amount can leave the account.
func (a *Account) canWithdraw(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// Deposit credits the available balance.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	a.Available = a.Available.Add(amount)
	a.computeTotal()
	return nil
}

// Withdraw debits the available balance. Locked accounts and amounts larger
// than the available balance are rejected without touching any field.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := a.canWithdraw(amount); err != nil {
		return err
	}
	a.Available = a.Available.Sub(amount)
	a.computeTotal()
	return nil
}

// Hold moves amount from available to held. Available may go negative when
// the disputed funds were already withdrawn.
func (a *Account) Hold(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	a.computeTotal()
}

// Release moves amount from held back to available.
func (a *Account) Release(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	a.computeTotal()
}

// Reverse removes held funds from the account and locks it.
func (a *Account) Reverse(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.computeTotal()
	a.Locked = true
}

// Snapshot returns the account with every amount rounded to precision
// decimal places.
func (a Account) Snapshot(precision int32) Snapshot {
	return Snapshot{
		ClientID:  a.ClientID,
		Available: a.Available.Round(precision),
		Held:      a.Held.Round(precision),
		Total:     a.Total.Round(precision),
		Locked:    a.Locked,
		Precision: precision,
	}
}

// Snapshot is the final, rounded view of an account.
type Snapshot struct {
	ClientID  uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
	Precision int32
}
