package writer

import "sort"

// Object is a PDF object value.
type Object interface {
	Type() string
}

// ObjectRef identifies an indirect object.
type ObjectRef struct {
	Num, Gen int
}

type NameObj struct{ Val string }

func (n NameObj) Type() string { return "name" }

type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }

type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string { return "string" }

type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }

func (d *DictObj) Set(key string, value Object) {
	if value == nil {
		delete(d.KV, key)
		return
	}
	d.KV[key] = value
}

func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

// Keys returns the keys sorted, which is also the serialization order.
func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string { return "stream" }

type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string { return "ref" }

func Name(v string) NameObj              { return NameObj{Val: v} }
func Int(i int64) NumberObj              { return NumberObj{I: i, IsInt: true} }
func Real(f float64) NumberObj           { return NumberObj{F: f} }
func Str(b []byte) StringObj             { return StringObj{Bytes: b} }
func HexStr(b []byte) StringObj          { return StringObj{Bytes: b, Hex: true} }
func NewArray(items ...Object) *ArrayObj { return &ArrayObj{Items: items} }
func Dict() *DictObj                     { return &DictObj{KV: make(map[string]Object)} }
func Ref(r ObjectRef) RefObj             { return RefObj{R: r} }

// NewStream returns a stream with /Length set from data.
func NewStream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	dict.Set("Length", Int(int64(len(data))))
	return &StreamObj{Dict: dict, Data: data}
}
