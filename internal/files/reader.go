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

package files

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/blnkfinance/txengine/internal/txerror"
	"github.com/blnkfinance/txengine/model"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

var requiredColumns = []string{columnType, columnClient, columnTx}

// Open opens the input file. Failure is fatal for a run.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, txerror.New(txerror.ErrSourceUnavailable, "cannot open input file", errors.Wrap(err, path).Error())
	}
	return f, nil
}

// Reader parses transaction records from CSV input. The first row is a
// header naming the columns; the amount column is optional.
type Reader struct {
	csv       *csv.Reader
	columns   map[string]int
	precision int32
}

// NewReader returns a Reader over r. Amounts are rounded to precision.
func NewReader(r io.Reader, precision int32) *Reader {
	csvReader := csv.NewReader(bufio.NewReader(r))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.ReuseRecord = true
	return &Reader{csv: csvReader, precision: precision}
}

// readHeader maps column names to their index in a row.
func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return txerror.New(txerror.ErrSourceUnavailable, "cannot read header", errors.Wrap(err, "header").Error())
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return txerror.New(txerror.ErrSourceUnavailable, "header is missing a required column", name)
		}
	}
	r.columns = columns
	return nil
}

// Next returns the next record. It returns io.EOF at the end of the input.
func (r *Reader) Next() (model.Transaction, error) {
	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			return model.Transaction{}, err
		}
	}

	record, err := r.csv.Read()
	if err == io.EOF {
		return model.Transaction{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return model.Transaction{}, txerror.New(txerror.ErrMalformedRow, parseErr.Err.Error(), map[string]interface{}{"line": parseErr.Line})
		}
		return model.Transaction{}, errors.Wrap(err, "reading input")
	}

	line, _ := r.csv.FieldPos(0)
	return r.parseRow(record, line)
}

func (r *Reader) field(record []string, name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (r *Reader) parseRow(record []string, line int) (model.Transaction, error) {
	rowDetails := map[string]interface{}{"line": line}

	kind, ok := model.ParseKind(r.field(record, columnType))
	if !ok {
		rowDetails["type"] = r.field(record, columnType)
		return model.Transaction{}, txerror.New(txerror.ErrUnknownKind, "unknown transaction type", rowDetails)
	}

	clientID, err := strconv.ParseUint(r.field(record, columnClient), 10, 16)
	if err != nil {
		return model.Transaction{}, txerror.New(txerror.ErrMalformedRow, "invalid client id", rowDetails)
	}

	txID, err := strconv.ParseUint(r.field(record, columnTx), 10, 32)
	if err != nil {
		return model.Transaction{}, txerror.New(txerror.ErrMalformedRow, "invalid transaction id", rowDetails)
	}

	tx := model.Transaction{
		Kind:     kind,
		ClientID: uint16(clientID),
		TxID:     uint32(txID),
	}

	// Disputes, resolves and chargebacks use the referenced amount.
	if kind.RequiresAmount() {
		amount, err := model.ParseAmount(r.field(record, columnAmount), r.precision)
		if err != nil {
			return model.Transaction{}, txerror.New(txerror.ErrInvalidAmount, "invalid amount", rowDetails)
		}
		tx.Amount = amount
	}

	if err := tx.Validate(); err != nil {
		return model.Transaction{}, txerror.New(txerror.ErrInvalidAmount, err.Error(), rowDetails)
	}
	return tx, nil
}
