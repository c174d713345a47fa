package codec

import (
	"github.com/go-protomodel/protomodel/protostate"
	"github.com/go-protomodel/protomodel/wire"
)

// MessageBody reads or writes the body of one nested message, after its
// sub-item has already been opened (for read) or before it is closed (for
// write). Package model supplies these as closures bound to a particular
// TypeDescriptor's field table.
type MessageReadBody func(r *protostate.Reader, old interface{}) (interface{}, error)
type MessageWriteBody func(w *protostate.Writer, val interface{}) error

// Message returns a Serializer for a nested message field, bounding the
// body with a sub-item using the given policy.
func Message(policy protostate.SubItemPolicy, read MessageReadBody, write MessageWriteBody) Serializer {
	return messageCodec{policy: policy, read: read, write: write}
}

type messageCodec struct {
	policy protostate.SubItemPolicy
	read   MessageReadBody
	write  MessageWriteBody
}

func (messageCodec) Features() Features { return 0 }

func (c messageCodec) Read(r *protostate.Reader, old interface{}) (interface{}, error) {
	_, wt := r.CurrentField()
	var tok protostate.SubItemToken
	var err error
	if wt == wire.StartGroup {
		tok, err = r.StartSubItemGroup()
	} else {
		tok, err = r.StartSubItem()
	}
	if err != nil {
		return nil, err
	}
	val, err := c.read(r, old)
	if err != nil {
		return nil, err
	}
	if err := r.EndSubItem(tok); err != nil {
		return nil, err
	}
	return val, nil
}

func (c messageCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	if c.policy == protostate.Grouped {
		tok := w.StartSubItem(tag, protostate.Grouped)
		if err := c.write(w, val); err != nil {
			return err
		}
		return w.EndSubItem(tok)
	}
	tok := w.StartSubItem(tag, protostate.Buffered)
	if err := c.write(w, val); err != nil {
		return err
	}
	return w.EndSubItem(tok)
}
