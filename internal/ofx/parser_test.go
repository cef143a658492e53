package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>INR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>SBI123456789
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250201120000[0:GMT]
<DTEND>20250228120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250210120000[0:GMT]
<TRNAMT>49000.00
<FITID>2025021001
<NAME>NEFT RAMESH TRADERS
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250212120000[0:GMT]
<TRNAMT>-48500.00
<FITID>2025021201
<NAME>GUPTA EXPORTS PVT LTD
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>100000.00
<DTASOF>20250228120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 2,
			expectedError: false,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedCount: 0,
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			transactions, err := parser.ParseFile(context.Background(), reader, "cust-1")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, transactions, tt.expectedCount)
			}
		})
	}
}

func TestParseFileDirections(t *testing.T) {
	parser := NewParser()

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX), "cust-1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	// Inbound credit: statement account is the destination.
	inbound := transactions[0]
	assert.Equal(t, "2025021001", inbound.ID)
	assert.Equal(t, "cust-1", inbound.CustomerID)
	assert.Equal(t, 49000.0, inbound.Amount)
	assert.Equal(t, "RAMESH TRADERS", inbound.SourceAccount)
	assert.Equal(t, "SBI123456789", inbound.DestinationAccount)
	assert.Equal(t, 2025, inbound.Date.Year())
	assert.Equal(t, time.February, inbound.Date.Month())
	assert.NotEmpty(t, inbound.Hash)

	// Outbound debit: statement account is the source.
	outbound := transactions[1]
	assert.Equal(t, "2025021201", outbound.ID)
	assert.Equal(t, 48500.0, outbound.Amount)
	assert.Equal(t, "SBI123456789", outbound.SourceAccount)
	assert.Equal(t, "GUPTA EXPORTS PVT LTD", outbound.DestinationAccount)
}

func TestExtractCounterparty(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "remove NEFT prefix",
			input:    "NEFT RAMESH TRADERS",
			expected: "RAMESH TRADERS",
		},
		{
			name:     "remove UPI prefix",
			input:    "UPI GROCERY MART",
			expected: "GROCERY MART",
		},
		{
			name:     "keep clean name",
			input:    "GUPTA EXPORTS PVT LTD",
			expected: "GUPTA EXPORTS PVT LTD",
		},
		{
			name:     "trim whitespace",
			input:    "  SHARMA AND SONS  ",
			expected: "SHARMA AND SONS",
		},
		{
			name:     "empty name falls back",
			input:    "",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
			}
			assert.Equal(t, tt.expected, parser.extractCounterparty(tx))
		})
	}
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Contains(t, accounts, "SBI123456789")
}
