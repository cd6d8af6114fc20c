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

package txengine

import (
	"errors"

	"github.com/blnkfinance/txengine/internal/txerror"
	"github.com/blnkfinance/txengine/model"
)

// Engine applies transaction records to client accounts. It is not safe for
// concurrent use: records must be applied one at a time in arrival order.
type Engine struct {
	accounts     map[uint16]*model.Account
	order        []uint16
	transactions map[uint32]*model.DisputableTransaction

	allowRedispute     bool
	disputeWithdrawals bool
	precision          int32
}

// Option configures an Engine.
type Option func(*Engine)

// WithRedispute controls whether a resolved transaction can be disputed again.
func WithRedispute(allow bool) Option {
	return func(e *Engine) {
		e.allowRedispute = allow
	}
}

// WithWithdrawalDisputes controls whether withdrawals can be disputed.
func WithWithdrawalDisputes(allow bool) Option {
	return func(e *Engine) {
		e.disputeWithdrawals = allow
	}
}

// WithPrecision sets the number of decimal places used in snapshots.
func WithPrecision(precision int32) Option {
	return func(e *Engine) {
		e.precision = precision
	}
}

// NewEngine returns an empty Engine configured by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		accounts:       make(map[uint16]*model.Account),
		transactions:   make(map[uint32]*model.DisputableTransaction),
		allowRedispute: true,
		precision:      model.DefaultPrecision,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// getOrCreateAccount returns the account of clientID, creating it on first use.
func (e *Engine) getOrCreateAccount(clientID uint16) *model.Account {
	account, ok := e.accounts[clientID]
	if !ok {
		account = model.NewAccount(clientID)
		e.accounts[clientID] = account
		e.order = append(e.order, clientID)
	}
	return account
}

// Apply applies a single record. A nil error means the record took effect.
// Otherwise the returned *txerror.TxError explains why it was skipped and no
// balance was changed.
func (e *Engine) Apply(tx model.Transaction) error {
	if err := tx.Validate(); err != nil {
		return txerror.New(txerror.ErrMalformedRow, err.Error(), details(tx))
	}

	account := e.getOrCreateAccount(tx.ClientID)

	switch tx.Kind {
	case model.KindDeposit:
		return e.deposit(account, tx)
	case model.KindWithdrawal:
		return e.withdraw(account, tx)
	case model.KindDispute:
		return e.dispute(account, tx)
	case model.KindResolve:
		return e.resolve(account, tx)
	case model.KindChargeback:
		return e.chargeback(account, tx)
	}
	return txerror.New(txerror.ErrUnknownKind, "unsupported transaction type", details(tx))
}

func (e *Engine) deposit(account *model.Account, tx model.Transaction) error {
	if _, exists := e.transactions[tx.TxID]; exists {
		return txerror.New(txerror.ErrDuplicateTransaction, "transaction id already used", details(tx))
	}
	if err := account.Deposit(tx.Amount.Decimal); err != nil {
		return txerror.New(txerror.ErrInvalidAmount, err.Error(), details(tx))
	}
	e.transactions[tx.TxID] = model.NewDisputableTransaction(tx)
	return nil
}

func (e *Engine) withdraw(account *model.Account, tx model.Transaction) error {
	if _, exists := e.transactions[tx.TxID]; exists {
		return txerror.New(txerror.ErrDuplicateTransaction, "transaction id already used", details(tx))
	}
	if err := account.Withdraw(tx.Amount.Decimal); err != nil {
		return txerror.New(withdrawalErrorCode(err), err.Error(), details(tx))
	}
	e.transactions[tx.TxID] = model.NewDisputableTransaction(tx)
	return nil
}

func withdrawalErrorCode(err error) txerror.ErrorCode {
	switch {
	case errors.Is(err, model.ErrAccountLocked):
		return txerror.ErrAccountLocked
	case errors.Is(err, model.ErrInsufficientFunds):
		return txerror.ErrInsufficientFunds
	default:
		return txerror.ErrInvalidAmount
	}
}

// referenced looks up the stored transaction a dispute, resolve or
// chargeback points at and checks it belongs to the same client.
func (e *Engine) referenced(tx model.Transaction) (*model.DisputableTransaction, error) {
	stored, ok := e.transactions[tx.TxID]
	if !ok {
		return nil, txerror.New(txerror.ErrUnknownTransaction, "referenced transaction not found", details(tx))
	}
	if stored.ClientID != tx.ClientID {
		return nil, txerror.New(txerror.ErrClientMismatch, "referenced transaction belongs to another client", details(tx))
	}
	if stored.Kind == model.KindWithdrawal && !e.disputeWithdrawals {
		return nil, txerror.New(txerror.ErrNotDisputable, "withdrawals cannot be disputed", details(tx))
	}
	return stored, nil
}

// transition moves stored to status to, after which apply mutates the account.
func (e *Engine) transition(tx model.Transaction, to model.DisputeStatus, apply func(*model.DisputableTransaction)) error {
	stored, err := e.referenced(tx)
	if err != nil {
		return err
	}
	if err := stored.Transition(to, e.allowRedispute); err != nil {
		return txerror.New(txerror.ErrInvalidTransition, err.Error(), details(tx))
	}
	apply(stored)
	return nil
}

func (e *Engine) dispute(account *model.Account, tx model.Transaction) error {
	return e.transition(tx, model.StatusDisputed, func(stored *model.DisputableTransaction) {
		account.Hold(stored.Amount)
	})
}

func (e *Engine) resolve(account *model.Account, tx model.Transaction) error {
	return e.transition(tx, model.StatusResolved, func(stored *model.DisputableTransaction) {
		account.Release(stored.Amount)
	})
}

func (e *Engine) chargeback(account *model.Account, tx model.Transaction) error {
	return e.transition(tx, model.StatusChargedBack, func(stored *model.DisputableTransaction) {
		account.Reverse(stored.Amount)
	})
}

// Account returns a copy of the account of clientID.
func (e *Engine) Account(clientID uint16) (model.Account, bool) {
	account, ok := e.accounts[clientID]
	if !ok {
		return model.Account{}, false
	}
	return *account, true
}

// Snapshot returns one row per known account, in the order the accounts
// were created.
func (e *Engine) Snapshot() []model.Snapshot {
	snapshots := make([]model.Snapshot, 0, len(e.order))
	for _, clientID := range e.order {
		snapshots = append(snapshots, e.accounts[clientID].Snapshot(e.precision))
	}
	return snapshots
}

func details(tx model.Transaction) map[string]interface{} {
	fields := map[string]interface{}{
		"type":   tx.Kind,
		"client": tx.ClientID,
		"tx":     tx.TxID,
	}
	if !tx.Kind.References() && tx.Amount.Valid {
		fields["amount"] = tx.Amount.Decimal.String()
	}
	return fields
}
