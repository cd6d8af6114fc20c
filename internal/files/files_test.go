package files

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/txengine/internal/txerror"
	"github.com/blnkfinance/txengine/model"
)

func readAll(t *testing.T, input string) ([]model.Transaction, []error) {
	t.Helper()
	reader := NewReader(strings.NewReader(input), model.DefaultPrecision)

	var txs []model.Transaction
	var errs []error
	for {
		tx, err := reader.Next()
		if err == io.EOF {
			return txs, errs
		}
		if err != nil {
			if txerror.IsFatal(err) {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			errs = append(errs, err)
			continue
		}
		txs = append(txs, tx)
	}
}

func TestOpen(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, txerror.ErrSourceUnavailable, txerror.CodeOf(err))
	assert.True(t, txerror.IsFatal(err))

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("type,client,tx,amount\n"), 0o644))
	f, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestReader_Next(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 1.0\n" +
		"  Withdrawal ,2,5,  2.12345\n" +
		"dispute, 1, 1,\n" +
		"RESOLVE,1,1\n" +
		"chargeback,1,1,9.99\n"

	txs, errs := readAll(t, input)
	require.Empty(t, errs)
	require.Len(t, txs, 5)

	assert.Equal(t, model.KindDeposit, txs[0].Kind)
	assert.Equal(t, uint16(1), txs[0].ClientID)
	assert.Equal(t, uint32(1), txs[0].TxID)
	assert.True(t, decimal.RequireFromString("1").Equal(txs[0].Amount.Decimal))

	assert.Equal(t, model.KindWithdrawal, txs[1].Kind)
	assert.Equal(t, uint16(2), txs[1].ClientID)
	assert.Equal(t, "2.1235", txs[1].Amount.Decimal.String())

	assert.Equal(t, model.KindDispute, txs[2].Kind)
	assert.False(t, txs[2].Amount.Valid)

	assert.Equal(t, model.KindResolve, txs[3].Kind)
	assert.Equal(t, model.KindChargeback, txs[4].Kind)
	assert.False(t, txs[4].Amount.Valid, "amounts on chargeback rows are ignored")
}

func TestReader_ColumnOrderFromHeader(t *testing.T) {
	txs, errs := readAll(t, "amount,tx,client,type\n3.5,7,2,deposit\n")
	require.Empty(t, errs)
	require.Len(t, txs, 1)
	assert.Equal(t, uint16(2), txs[0].ClientID)
	assert.Equal(t, uint32(7), txs[0].TxID)
	assert.Equal(t, "3.5", txs[0].Amount.Decimal.String())
}

func TestReader_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
		code txerror.ErrorCode
	}{
		{name: "unknown type", row: "refund,1,1,1.0", code: txerror.ErrUnknownKind},
		{name: "bad client", row: "deposit,abc,1,1.0", code: txerror.ErrMalformedRow},
		{name: "client out of range", row: "deposit,70000,1,1.0", code: txerror.ErrMalformedRow},
		{name: "negative tx", row: "deposit,1,-4,1.0", code: txerror.ErrMalformedRow},
		{name: "bad amount", row: "deposit,1,1,one", code: txerror.ErrInvalidAmount},
		{name: "missing amount", row: "withdrawal,1,1,", code: txerror.ErrInvalidAmount},
		{name: "negative amount", row: "deposit,1,1,-2", code: txerror.ErrInvalidAmount},
		{name: "negative amount below precision", row: "deposit,1,1,-0.00001", code: txerror.ErrInvalidAmount},
		{name: "bare quote", row: "deposit,1,1,1\"0", code: txerror.ErrMalformedRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, errs := readAll(t, "type,client,tx,amount\n"+tt.row+"\ndeposit,9,9,1.0\n")
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, txerror.CodeOf(errs[0]))
			require.Len(t, txs, 1, "reading continues after a malformed row")
			assert.Equal(t, uint16(9), txs[0].ClientID)
		})
	}
}

func TestReader_Header(t *testing.T) {
	reader := NewReader(strings.NewReader(""), model.DefaultPrecision)
	_, err := reader.Next()
	assert.Equal(t, io.EOF, err)

	reader = NewReader(strings.NewReader("kind,client,amount\ndeposit,1,1\n"), model.DefaultPrecision)
	_, err = reader.Next()
	require.Error(t, err)
	assert.True(t, txerror.IsFatal(err))
	assert.Equal(t, txerror.ErrSourceUnavailable, txerror.CodeOf(err))
}

func snapshots() []model.Snapshot {
	return []model.Snapshot{
		{ClientID: 1, Available: decimal.RequireFromString("3.5"), Held: decimal.Zero, Total: decimal.RequireFromString("3.5"), Precision: 4},
		{ClientID: 2, Available: decimal.Zero, Held: decimal.Zero, Total: decimal.Zero, Locked: true, Precision: 4},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.EqualError(t, err, `unsupported output format "xml"`)
}

func TestWriter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatCSV).Write(context.Background(), snapshots()))

	want := "client,available,held,total,locked\n" +
		"1,3.5000,0.0000,3.5000,false\n" +
		"2,0.0000,0.0000,0.0000,true\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_CSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, "").Write(context.Background(), nil))
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Write(context.Background(), snapshots()))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, float64(1), rows[0]["client"])
	assert.Equal(t, "3.5000", rows[0]["available"])
	assert.Equal(t, true, rows[1]["locked"])
}

func TestMarkdownTable(t *testing.T) {
	md := markdownTable(snapshots())
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| client | available | held | total | locked |", lines[0])
	assert.Equal(t, "| 1 | 3.5000 | 0.0000 | 3.5000 | false |", lines[2])
}

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatTable).Write(context.Background(), snapshots()))
	out := buf.String()
	assert.Contains(t, out, "client")
	assert.Contains(t, out, "3.5000")
	assert.Contains(t, out, "true")
}
