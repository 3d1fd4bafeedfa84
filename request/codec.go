package request

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/lnpwp"
)

// writeElements and readElements mirror the lnpwp package's codec helpers,
// extended with the extra element types the Request vocabulary needs:
// ServiceAddress, wire.OutPoint, length-prefixed strings/bytes, and bool.

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, e := range elements {
		if err := writeElement(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case bool:
		var b byte
		if e {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case byte:
		_, err := w.Write([]byte{e})
		return err
	case uint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], e)
		_, err := w.Write(buf[:])
		return err
	case uint32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], e)
		_, err := w.Write(buf[:])
		return err
	case uint64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], e)
		_, err := w.Write(buf[:])
		return err
	case int64:
		return writeElement(w, uint64(e))
	case lnpwp.MilliSatoshi:
		return writeElement(w, uint64(e))
	case btcutil.Amount:
		return writeElement(w, uint64(e))
	case AssetID:
		return writeElement(w, uint32(e))
	case [32]byte:
		_, err := w.Write(e[:])
		return err
	case lnpwp.ChannelID:
		_, err := w.Write(e[:])
		return err
	case []byte:
		return writeLenPrefixed(w, e)
	case string:
		return writeLenPrefixed(w, []byte(e))
	case wire.OutPoint:
		if err := writeElement(w, e.Hash); err != nil {
			return err
		}
		return writeElement(w, e.Index)
	case address.ServiceAddress:
		return e.Encode(w)
	case *btcec.PublicKey:
		var buf [33]byte
		if e != nil {
			copy(buf[:], e.SerializeCompressed())
		}
		_, err := w.Write(buf[:])
		return err
	default:
		return fmt.Errorf("request: unsupported element type %T", element)
	}
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, e := range elements {
		if err := readElement(r, e); err != nil {
			return err
		}
	}
	return nil
}

func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *bool:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0] != 0
		return nil
	case *byte:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = buf[0]
		return nil
	case *uint16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint16(buf[:])
		return nil
	case *uint32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint32(buf[:])
		return nil
	case *uint64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint64(buf[:])
		return nil
	case *int64:
		var tmp uint64
		if err := readElement(r, &tmp); err != nil {
			return err
		}
		*e = int64(tmp)
		return nil
	case *lnpwp.MilliSatoshi:
		var tmp uint64
		if err := readElement(r, &tmp); err != nil {
			return err
		}
		*e = lnpwp.MilliSatoshi(tmp)
		return nil
	case *btcutil.Amount:
		var tmp uint64
		if err := readElement(r, &tmp); err != nil {
			return err
		}
		*e = btcutil.Amount(tmp)
		return nil
	case *AssetID:
		var tmp uint32
		if err := readElement(r, &tmp); err != nil {
			return err
		}
		*e = AssetID(tmp)
		return nil
	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *lnpwp.ChannelID:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[]byte:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return err
		}
		*e = payload
		return nil
	case *string:
		payload, err := readLenPrefixed(r)
		if err != nil {
			return err
		}
		*e = string(payload)
		return nil
	case *wire.OutPoint:
		if err := readElement(r, &e.Hash); err != nil {
			return err
		}
		return readElement(r, &e.Index)
	case *address.ServiceAddress:
		a, err := address.Decode(r)
		if err != nil {
			return err
		}
		*e = a
		return nil
	case **btcec.PublicKey:
		var buf [33]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		var zero [33]byte
		if buf == zero {
			*e = nil
			return nil
		}
		pub, err := btcec.ParsePubKey(buf[:], btcec.S256())
		if err != nil {
			return err
		}
		*e = pub
		return nil
	default:
		return fmt.Errorf("request: unsupported element type %T", element)
	}
}

func writeLenPrefixed(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
