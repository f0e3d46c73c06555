package verilog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fhdl/internal/ir"
)

// Pragma is the output-language attribute a key translates to. Value holds
// a string or an integer.
type Pragma struct {
	Name  string
	Value interface{}
}

// AttrTable translates attribute keys into pragmas. Keys without an entry
// are dropped. A nil table translates every key k to k = "true".
type AttrTable map[string]Pragma

func (t AttrTable) translate(key string) (Pragma, bool) {
	if t == nil {
		return Pragma{Name: key, Value: "true"}, true
	}
	p, ok := t[key]
	return p, ok
}

// printAttributes renders attrs as "(* a = "x", b = 1 *)", or "" when none
// survive translation. Translated keys come first, sorted by key, followed
// by direct name/value pairs sorted by name.
func printAttributes(attrs []ir.Attribute, table AttrTable) string {
	var keyed, direct []ir.Attribute
	for _, a := range attrs {
		if a.Name == "" {
			keyed = append(keyed, a)
		} else {
			direct = append(direct, a)
		}
	}
	sort.SliceStable(keyed, func(i, j int) bool { return keyed[i].Key < keyed[j].Key })
	sort.SliceStable(direct, func(i, j int) bool {
		if direct[i].Name != direct[j].Name {
			return direct[i].Name < direct[j].Name
		}
		return attrValue(direct[i].Value) < attrValue(direct[j].Value)
	})

	var parts []string
	for _, a := range keyed {
		p, ok := table.translate(a.Key)
		if !ok {
			continue
		}
		parts = append(parts, p.Name+" = "+attrValue(p.Value))
	}
	for _, a := range direct {
		parts = append(parts, a.Name+" = "+attrValue(a.Value))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(* " + strings.Join(parts, ", ") + " *)"
}

func attrValue(v interface{}) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case string:
		return strconv.Quote(x)
	case nil:
		return `""`
	default:
		return strconv.Quote(fmt.Sprint(x))
	}
}
