package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrVerify = errors.New("verify report")

// Verify opens b as a PDF and checks that it holds exactly one page.
func Verify(b []byte) (err error) {
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing %%PDF header", ErrVerify)
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrVerify, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerify, err)
	}
	if n := reader.NumPage(); n != 1 {
		return fmt.Errorf("%w: %d pages, want 1", ErrVerify, n)
	}
	return nil
}
