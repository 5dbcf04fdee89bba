package docfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// note is a test document holding a length prefixed string.
type note struct {
	text string
}

func (n *note) Encode(w io.Writer) error {
	err := binary.Write(w, binary.BigEndian, uint16(len(n.text)))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, n.text)

	return err
}

func (n *note) Decode(r io.Reader) error {
	var size uint16
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return err
	}

	text := make([]byte, size)
	if _, err := io.ReadFull(r, text); err != nil {
		return err
	}
	n.text = string(text)

	return nil
}

// TestFileRoundTrip checks that a written document reads back unchanged.
func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wallet"+Extension)

	written := &note{text: "hello"}
	require.NoError(t, WriteFile(path, WalletMagic, written))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xa4, 0x54, 0x6a, 0x8e}, data[:4])

	var read note
	require.NoError(t, ReadFile(path, WalletMagic, &read))
	require.Equal(t, *written, read)

	// Overwriting truncates the previous content.
	require.NoError(t, WriteFile(path, WalletMagic, &note{text: "hi"}))
	require.NoError(t, ReadFile(path, WalletMagic, &read))
	require.Equal(t, "hi", read.text)
}

// TestMagicMismatch checks that a corrupted magic is reported with the
// expected constant.
func TestMagicMismatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, WalletMagic, &note{text: "x"}))

	data := buf.Bytes()
	copy(data[:4], []byte{1, 2, 3, 4})

	err := Read(bytes.NewReader(data), WalletMagic, &note{})

	var magicErr *MagicError
	require.ErrorAs(t, err, &magicErr)
	require.Equal(t, WalletMagic, magicErr.Expected)
	require.Equal(t, Magic{1, 2, 3, 4}, magicErr.Actual)
	require.Equal(t, "a4546a8e", magicErr.Expected.String())
}

// TestTrailingData checks that bytes after the document are rejected.
func TestTrailingData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, WalletMagic, &note{text: "x"}))
	buf.WriteByte(0)

	err := Read(&buf, WalletMagic, &note{})
	require.ErrorIs(t, err, ErrDataNotEntirelyConsumed)
}

// TestTruncated checks that a truncated file fails to decode.
func TestTruncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, WalletMagic, &note{text: "hello"}))

	data := buf.Bytes()[:buf.Len()-2]
	require.Error(t, Read(bytes.NewReader(data), WalletMagic, &note{}))

	require.Error(t, Read(bytes.NewReader(data[:2]), WalletMagic,
		&note{}))
}
