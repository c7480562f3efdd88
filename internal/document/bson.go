package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FromBSON converts one raw BSON document into a Document. The raw bytes are
// validated first; nested documents and arrays are converted recursively.
func FromBSON(raw bson.Raw) (Document, error) {
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("document: invalid bson: %w", err)
	}
	return fromRawDocument(raw)
}

func fromRawDocument(raw bson.Raw) (Document, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("document: elements: %w", err)
	}
	d := make(Document, 0, len(elems))
	for _, e := range elems {
		v, err := fromRawValue(e.Value())
		if err != nil {
			return nil, fmt.Errorf("document: key %q: %w", e.Key(), err)
		}
		d = append(d, Element{Key: e.Key(), Value: v})
	}
	return d, nil
}

func fromRawValue(rv bson.RawValue) (Value, error) {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return Null{}, nil
	case bsontype.Boolean:
		return Bool(rv.Boolean()), nil
	case bsontype.Int32:
		return Int(rv.Int32()), nil
	case bsontype.Int64:
		return Int(rv.Int64()), nil
	case bsontype.Double:
		return Float(rv.Double()), nil
	case bsontype.String:
		return String(rv.StringValue()), nil
	case bsontype.Symbol:
		return String(rv.Symbol()), nil
	case bsontype.JavaScript:
		return String(rv.JavaScript()), nil
	case bsontype.ObjectID:
		return ObjectID(rv.ObjectID()), nil
	case bsontype.DateTime:
		return DateTime(rv.DateTime()), nil
	case bsontype.Decimal128:
		return Decimal(rv.Decimal128().String()), nil
	case bsontype.Binary:
		subtype, data := rv.Binary()
		return Binary{Subtype: subtype, Data: data}, nil
	case bsontype.EmbeddedDocument:
		return fromRawDocument(rv.Document())
	case bsontype.Array:
		vals, err := rv.Array().Values()
		if err != nil {
			return nil, fmt.Errorf("array values: %w", err)
		}
		arr := make(Array, 0, len(vals))
		for i, item := range vals {
			v, err := fromRawValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	case bsontype.Regex:
		return Unsupported{Type: "regex"}, nil
	case bsontype.Timestamp:
		return Unsupported{Type: "timestamp"}, nil
	case bsontype.DBPointer:
		return Unsupported{Type: "dbPointer"}, nil
	case bsontype.CodeWithScope:
		return Unsupported{Type: "javascriptWithScope"}, nil
	case bsontype.MinKey:
		return Unsupported{Type: "minKey"}, nil
	case bsontype.MaxKey:
		return Unsupported{Type: "maxKey"}, nil
	default:
		return Unsupported{Type: rv.Type.String()}, nil
	}
}
