package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stkSuccessBody = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 1000.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

func TestParseSTKCallbackSuccess(t *testing.T) {
	res, err := ParseSTKCallback([]byte(stkSuccessBody))
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", res.ProviderRef)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "NLJ7RT61SV", res.Receipt)
	assert.NotNil(t, res.Raw)
}

func TestParseSTKCallbackCancelled(t *testing.T) {
	body := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`
	res, err := ParseSTKCallback([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "cancel", res.Status)
	assert.Equal(t, "Request cancelled by user", res.Description)
	assert.Empty(t, res.Receipt)
}

func TestParseSTKCallbackFailureCode(t *testing.T) {
	body := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_2",
				"ResultCode": 1037,
				"ResultDesc": "DS timeout user cannot be reached"
			}
		}
	}`
	res, err := ParseSTKCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "failure", res.Status)
}

func TestParseSTKCallbackMissingRef(t *testing.T) {
	_, err := ParseSTKCallback([]byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`))
	assert.Error(t, err)
}

func TestParseB2CResult(t *testing.T) {
	body := `{
		"Result": {
			"ResultType": 0,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"ConversationID": "AG_20191219_00005797af5d7d75f652",
			"TransactionID": "NLJ41HAY6Q"
		}
	}`
	res, err := ParseB2CResult([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "AG_20191219_00005797af5d7d75f652", res.ProviderRef)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "NLJ41HAY6Q", res.Receipt)
}

func TestParseB2CResultFailure(t *testing.T) {
	body := `{
		"Result": {
			"ResultCode": 2001,
			"ResultDesc": "The initiator information is invalid.",
			"ConversationID": "AG_1"
		}
	}`
	res, err := ParseB2CResult([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "failure", res.Status)
}

func TestParseB2CResultMissingRef(t *testing.T) {
	_, err := ParseB2CResult([]byte(`{"Result":{"ResultCode":0}}`))
	assert.Error(t, err)
}
