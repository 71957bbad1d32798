package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// ErrBadRecord is returned for a record that decodes as CBOR but does not
// describe a captured publish.
var ErrBadRecord = errors.New("malformed capture record")

// Records are written canonically so that two captures of the same traffic
// are byte-identical apart from timestamps and session ids.
var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	var err error
	recordEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: record encoder: %v", err))
	}

	// Files written by older builds may carry unknown keys; they are skipped.
	recordDec, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: record decoder: %v", err))
	}
}

func checkRecord(r Record) error {
	if r.Topic == "" {
		return fmt.Errorf("%w: empty topic", ErrBadRecord)
	}
	if r.Direction != DirectionIn && r.Direction != DirectionOut {
		return fmt.Errorf("%w: direction %d", ErrBadRecord, r.Direction)
	}
	return nil
}

// EncodeRecord returns the CBOR form of one record.
func EncodeRecord(r Record) ([]byte, error) {
	return recordEnc.Marshal(r)
}

// DecodeRecord parses a single record as written by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := recordDec.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	if err := checkRecord(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// recordWriter streams records to a capture file.
type recordWriter struct {
	enc *cbor.Encoder
}

func newRecordWriter(w io.Writer) *recordWriter {
	return &recordWriter{enc: recordEnc.NewEncoder(w)}
}

func (w *recordWriter) write(r Record) error {
	return w.enc.Encode(r)
}

// recordScanner reads the records of a capture file one at a time.
type recordScanner struct {
	dec *cbor.Decoder
}

func newRecordScanner(r io.Reader) *recordScanner {
	return &recordScanner{dec: recordDec.NewDecoder(r)}
}

// next returns io.EOF once the input is exhausted.
func (s *recordScanner) next() (Record, error) {
	var r Record
	if err := s.dec.Decode(&r); err != nil {
		return Record{}, err
	}
	if err := checkRecord(r); err != nil {
		return Record{}, err
	}
	return r, nil
}
