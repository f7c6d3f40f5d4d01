package persist

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Extension is the file extension for LZ4-framed JSON files.
const lz4Extension = ".json.lz4"

// LZ4Codec implements Codec as JSON wrapped in an LZ4 frame. Multi-decade
// histories produce cache files in the tens of megabytes of highly
// repetitive JSON; the frame typically shrinks them by an order of
// magnitude while staying cheap to decode at startup.
type LZ4Codec struct {
	inner JSONCodec
}

// NewLZ4Codec creates an LZ4-compressed JSON codec. Compact JSON is used
// inside the frame; indentation would only inflate the compressed size.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{inner: JSONCodec{Indent: ""}}
}

// Encode implements Codec.Encode: JSON encoded through an LZ4 frame writer.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := c.inner.Encode(zw, state)
	if err != nil {
		zw.Close()

		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close lz4 frame: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode: JSON decoded from an LZ4 frame reader.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	return c.inner.Decode(lz4.NewReader(r), state)
}

// Extension implements Codec.Extension for LZ4-framed JSON files.
func (c *LZ4Codec) Extension() string {
	return lz4Extension
}
