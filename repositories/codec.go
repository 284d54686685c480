package repositories

import (
	"chat-relay/errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Journal values use the protobuf wire format with this field layout:
//
//	message Message {
//	  string id = 1;
//	  string session = 2;
//	  string text = 3;
//	  string sender = 4;
//	  string origin = 5;
//	  string connection = 6;
//	  int64  at = 7; // unix nano
//	  string client_id = 8;
//	}
const (
	fieldID         protowire.Number = 1
	fieldSession    protowire.Number = 2
	fieldText       protowire.Number = 3
	fieldSender     protowire.Number = 4
	fieldOrigin     protowire.Number = 5
	fieldConnection protowire.Number = 6
	fieldAt         protowire.Number = 7
	fieldClientID   protowire.Number = 8
)

func encodeMessage(m DiskMessage) []byte {
	var b []byte
	b = appendString(b, fieldID, m.ID)
	b = appendString(b, fieldSession, m.Session)
	b = appendString(b, fieldText, m.Text)
	b = appendString(b, fieldSender, m.Sender)
	b = appendString(b, fieldOrigin, m.Origin)
	b = appendString(b, fieldConnection, m.Connection)
	b = protowire.AppendTag(b, fieldAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.At.UnixNano()))
	b = appendString(b, fieldClientID, m.ClientID)
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// DecodeMessage skips unknown fields so older binaries can read newer entries.
func DecodeMessage(b []byte) (DiskMessage, error) {
	var m DiskMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DiskMessage{}, corrupted(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num >= fieldID && num <= fieldConnection || num == fieldClientID):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return DiskMessage{}, corrupted(n)
			}
			b = b[n:]
			switch num {
			case fieldID:
				m.ID = v
			case fieldSession:
				m.Session = v
			case fieldText:
				m.Text = v
			case fieldSender:
				m.Sender = v
			case fieldOrigin:
				m.Origin = v
			case fieldConnection:
				m.Connection = v
			case fieldClientID:
				m.ClientID = v
			}
		case typ == protowire.VarintType && num == fieldAt:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return DiskMessage{}, corrupted(n)
			}
			b = b[n:]
			m.At = time.Unix(0, int64(v)).UTC()
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return DiskMessage{}, corrupted(n)
			}
			b = b[n:]
		}
	}
	return m, nil
}

func corrupted(n int) error {
	return fmt.Errorf("%w: %v", errors.ErrCorruptedJournal, protowire.ParseError(n))
}
