package pool

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipOutputIsIndependentOfPool(t *testing.T) {
	first, err := Gzip([]byte(`{"events":[]}`))
	require.NoError(t, err)

	// 같은 pool 버퍼를 재사용하는 두 번째 호출이 첫 결과를 덮어쓰면 안 된다.
	_, err = Gzip(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader(first))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `{"events":[]}`, string(plain))
}

func TestPutBodyDropsOversizedBuffers(t *testing.T) {
	big := bytes.NewBuffer(make([]byte, 0, 1024))
	big.WriteString("abc")
	PutBody(big, 16)
	// 버려진 버퍼는 Reset 되지 않는다
	assert.Equal(t, 3, big.Len())
}
