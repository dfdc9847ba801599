package export

import (
	"go.mongodb.org/mongo-driver/bson"
	"jmdict/pkg/parser"
)

// Field names used for attributes and mixed text, since MongoDB reserves
// the "$" prefix.
const (
	AttrsKey = "_attrs"
	TextKey  = "_text"
)

// BuildDocuments converts entries into {date_key, index, entry} documents.
// offset is the position of entries[0] in the full list.
func BuildDocuments(entries parser.EntryList, dateKey string, offset int) []interface{} {
	docs := make([]interface{}, len(entries))
	for i, entry := range entries {
		docs[i] = bson.D{
			{Key: "date_key", Value: dateKey},
			{Key: "index", Value: offset + i},
			{Key: "entry", Value: ToBSON(entry)},
		}
	}
	return docs
}

// ToBSON converts a parsed value, keeping attribute and child order
func ToBSON(v parser.Value) interface{} {
	switch v := v.(type) {
	case parser.Text:
		return string(v)
	case *parser.Element:
		doc := bson.D{}
		if v.Text != "" {
			doc = append(doc, bson.E{Key: TextKey, Value: v.Text})
		}
		if len(v.Attrs) > 0 {
			attrs := make(bson.D, len(v.Attrs))
			for i, a := range v.Attrs {
				attrs[i] = bson.E{Key: a.Name, Value: a.Value}
			}
			doc = append(doc, bson.E{Key: AttrsKey, Value: attrs})
		}
		for _, f := range v.Fields {
			values := make(bson.A, len(f.Values))
			for i, child := range f.Values {
				values[i] = ToBSON(child)
			}
			doc = append(doc, bson.E{Key: f.Name, Value: values})
		}
		return doc
	default:
		return nil
	}
}
