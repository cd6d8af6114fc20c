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
	"fmt"

	"github.com/shopspring/decimal"
)

// DisputeStatus is the lifecycle state of a stored transaction.
type DisputeStatus string

const (
	StatusUndisputed  DisputeStatus = "undisputed"
	StatusDisputed    DisputeStatus = "disputed"
	StatusResolved    DisputeStatus = "resolved"
	StatusChargedBack DisputeStatus = "charged_back"
)

// ErrInvalidTransition is returned when a dispute status change is not allowed.
var ErrInvalidTransition = errors.New("invalid dispute transition")

// transitions lists the moves allowed from each status. Resolved -> disputed
// is gated separately by the redispute policy.
var transitions = map[DisputeStatus][]DisputeStatus{
	StatusUndisputed: {StatusDisputed},
	StatusDisputed:   {StatusResolved, StatusChargedBack},
	StatusResolved:   {StatusDisputed},
}

// DisputableTransaction is a deposit or withdrawal retained so later
// disputes, resolves and chargebacks can refer to it.
type DisputableTransaction struct {
	TxID     uint32          `json:"tx"`
	ClientID uint16          `json:"client"`
	Kind     Kind            `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Status   DisputeStatus   `json:"status"`
}

// NewDisputableTransaction records tx as an undisputed transaction.
func NewDisputableTransaction(tx Transaction) *DisputableTransaction {
	return &DisputableTransaction{
		TxID:     tx.TxID,
		ClientID: tx.ClientID,
		Kind:     tx.Kind,
		Amount:   tx.Amount.Decimal,
		Status:   StatusUndisputed,
	}
}

// CanTransition reports whether the stored transaction may move to status to.
func (d *DisputableTransaction) CanTransition(to DisputeStatus, allowRedispute bool) bool {
	if d.Status == StatusResolved && to == StatusDisputed && !allowRedispute {
		return false
	}
	for _, next := range transitions[d.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the stored transaction to status to, or returns
// ErrInvalidTransition and leaves it unchanged.
func (d *DisputableTransaction) Transition(to DisputeStatus, allowRedispute bool) error {
	if !d.CanTransition(to, allowRedispute) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	d.Status = to
	return nil
}
