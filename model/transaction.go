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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Kind is the type of a transaction record.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

var kinds = []interface{}{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

// ParseKind maps an input token to a Kind. Matching ignores case and
// surrounding whitespace.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, true
	}
	return "", false
}

// RequiresAmount reports whether records of this kind carry their own amount.
func (k Kind) RequiresAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// References reports whether records of this kind act on an earlier
// transaction instead of carrying an amount.
func (k Kind) References() bool {
	return k == KindDispute || k == KindResolve || k == KindChargeback
}

// Transaction is a single parsed input record.
type Transaction struct {
	Kind     Kind                `json:"type"`
	ClientID uint16              `json:"client"`
	TxID     uint32              `json:"tx"`
	Amount   decimal.NullDecimal `json:"amount"`
}

func amountRule(value interface{}) error {
	amount, ok := value.(decimal.NullDecimal)
	if !ok {
		return validation.NewError("validation_amount_type", "invalid type for amount")
	}
	if !amount.Valid {
		return validation.NewError("validation_amount_missing", "is required for deposits and withdrawals")
	}
	if amount.Decimal.IsNegative() {
		return validation.NewError("validation_amount_negative", "must not be negative")
	}
	return nil
}

// Validate checks the record shape. It does not look at ledger state.
func (t Transaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&t.Amount, validation.When(t.Kind.RequiresAmount(), validation.By(amountRule))),
	)
}
