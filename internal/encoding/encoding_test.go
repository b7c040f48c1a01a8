package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestNew_UTF8Aliases(t *testing.T) {
	for _, name := range []string{"", "utf8", "UTF-8", " utf-8 "} {
		enc, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, UTF8, enc.Name())
	}
}

func TestNew_Unknown(t *testing.T) {
	enc, err := New("klingon-8")
	require.Error(t, err)
	assert.Nil(t, enc)
}

func TestEncode_UTF8CopiesBytes(t *testing.T) {
	enc, err := New("utf-8")
	require.NoError(t, err)

	out, err := enc.Encode("héllo\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("héllo\n"), out)
}

func TestEncode_GBK(t *testing.T) {
	enc, err := New("gbk")
	require.NoError(t, err)
	assert.Equal(t, "gbk", enc.Name())

	out, err := enc.Encode("日志")
	require.NoError(t, err)

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(out)
	require.NoError(t, err)
	assert.Equal(t, "日志", string(decoded))
	assert.NotEqual(t, []byte("日志"), out)
}
