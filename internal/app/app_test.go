package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheckExtractsCards(t *testing.T) {
	a := New(nil, nil, nil)

	in := strings.NewReader("*858*1234567890123#\nوحدة: 500")
	var out bytes.Buffer

	require.NoError(t, a.RunCheck(in, &out))

	assert.Contains(t, out.String(), "✅ Code: *858*1234567890123#")
	assert.Contains(t, out.String(), "📶 Units: 500")
}

func TestRunCheckNoCards(t *testing.T) {
	a := New(nil, nil, nil)

	var out bytes.Buffer
	require.NoError(t, a.RunCheck(strings.NewReader("عروض اليوم"), &out))

	assert.Contains(t, out.String(), "no cards found")
}
