package lnpwp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil"
)

// writeElements serializes each element in order, dispatching on its
// concrete type. This mirrors the variadic writeElements helper the teacher
// pack's lnwire messages call into (see single_funding_request.go), kept
// private to this package rather than shared across a wider lnwire clone.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := writeElement(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeElement(w io.Writer, e interface{}) error {
	switch v := e.(type) {
	case ChannelID:
		_, err := w.Write(v[:])
		return err
	case [32]byte:
		_, err := w.Write(v[:])
		return err
	case [64]byte:
		_, err := w.Write(v[:])
		return err
	case byte:
		_, err := w.Write([]byte{v})
		return err
	case uint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], v)
		_, err := w.Write(buf[:])
		return err
	case uint32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], v)
		_, err := w.Write(buf[:])
		return err
	case uint64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		_, err := w.Write(buf[:])
		return err
	case MilliSatoshi:
		return writeElement(w, uint64(v))
	case btcutil.Amount:
		return writeElement(w, uint64(v))
	case *btcec.PublicKey:
		if v == nil {
			var zero [33]byte
			_, err := w.Write(zero[:])
			return err
		}
		_, err := w.Write(v.SerializeCompressed())
		return err
	default:
		return fmt.Errorf("lnpwp: unsupported element type %T", e)
	}
}

// readElements deserializes into each destination pointer in order,
// dispatching on its concrete type.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := readElement(r, e); err != nil {
			return err
		}
	}
	return nil
}

func readElement(r io.Reader, e interface{}) error {
	switch v := e.(type) {
	case *ChannelID:
		_, err := io.ReadFull(r, v[:])
		return err
	case *[32]byte:
		_, err := io.ReadFull(r, v[:])
		return err
	case *[64]byte:
		_, err := io.ReadFull(r, v[:])
		return err
	case *byte:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*v = buf[0]
		return nil
	case *uint16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint16(buf[:])
		return nil
	case *uint32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint32(buf[:])
		return nil
	case *uint64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*v = binary.BigEndian.Uint64(buf[:])
		return nil
	case *MilliSatoshi:
		var raw uint64
		if err := readElement(r, &raw); err != nil {
			return err
		}
		*v = MilliSatoshi(raw)
		return nil
	case *btcutil.Amount:
		var raw uint64
		if err := readElement(r, &raw); err != nil {
			return err
		}
		*v = btcutil.Amount(raw)
		return nil
	case **btcec.PublicKey:
		var buf [33]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		allZero := true
		for _, b := range buf {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			*v = nil
			return nil
		}
		pub, err := btcec.ParsePubKey(buf[:], btcec.S256())
		if err != nil {
			return fmt.Errorf("lnpwp: invalid pubkey: %w", err)
		}
		*v = pub
		return nil
	default:
		return fmt.Errorf("lnpwp: unsupported element type %T", e)
	}
}
