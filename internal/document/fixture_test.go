package document

// D builds a Document from alternating keys and values; a nil value becomes
// Null. It panics on an odd argument count or a non-string key.
func D(kv ...any) Document {
	if len(kv)%2 != 0 {
		panic("document.D: odd argument count")
	}
	d := make(Document, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("document.D: key must be a string")
		}
		v, _ := kv[i+1].(Value)
		if v == nil {
			v = Null{}
		}
		d = append(d, Element{Key: k, Value: v})
	}
	return d
}
