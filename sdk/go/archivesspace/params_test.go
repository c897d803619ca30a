// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"encoding/json"

	check "gopkg.in/check.v1"
)

var _ = check.Suite(&paramsSuite{})

type paramsSuite struct{}

func (*paramsSuite) TestSetKeepsOrder(c *check.C) {
	p := NewParams().Set("q", "x").Set("page", 1).Set("all_ids", true)
	c.Check(p.Keys(), check.DeepEquals, []string{"q", "page", "all_ids"})
	p.Set("q", "y")
	c.Check(p.Keys(), check.DeepEquals, []string{"q", "page", "all_ids"})
	v, ok := p.Get("q")
	c.Check(ok, check.Equals, true)
	c.Check(v, check.Equals, "y")
	c.Check(p.Len(), check.Equals, 3)
}

func (*paramsSuite) TestNil(c *check.C) {
	var p *Params
	c.Check(p.Len(), check.Equals, 0)
	c.Check(p.Keys(), check.HasLen, 0)
	c.Check(p.Map(), check.DeepEquals, map[string]interface{}{})
	_, ok := p.Get("x")
	c.Check(ok, check.Equals, false)
	q, err := p.Encode()
	c.Check(err, check.IsNil)
	c.Check(q, check.Equals, "")
	c.Check(p.Clone().Len(), check.Equals, 0)
	var zero Params
	zero.Set("a", 1)
	c.Check(zero.Len(), check.Equals, 1)
}

func (*paramsSuite) TestMerge(c *check.C) {
	defaults := NewParams().Set("page", 1).Set("resolve", []string{"subjects"})
	overrides := NewParams().Set("page", 3).Set("q", "x")
	merged := MergeParams(defaults, overrides)
	c.Check(merged.Map(), check.DeepEquals, map[string]interface{}{
		"page":    3,
		"resolve": []string{"subjects"},
		"q":       "x",
	})
	c.Check(merged.Keys(), check.DeepEquals, []string{"page", "resolve", "q"})
	// Inputs are unchanged.
	c.Check(defaults.Map(), check.DeepEquals, map[string]interface{}{"page": 1, "resolve": []string{"subjects"}})
	c.Check(overrides.Map(), check.DeepEquals, map[string]interface{}{"page": 3, "q": "x"})
}

func (*paramsSuite) TestMergeProperties(c *check.C) {
	for _, trial := range []struct{ a, b *Params }{
		{nil, nil},
		{NewParams(), nil},
		{nil, NewParams().Set("x", 1)},
		{NewParams().Set("x", 1).Set("y", 2), NewParams().Set("y", 3).Set("z", 4)},
		{NewParams().Set("x", []int{1}), NewParams().Set("x", []int{})},
	} {
		merged := MergeParams(trial.a, trial.b)
		// Every key of either input is present.
		for _, k := range append(trial.a.Keys(), trial.b.Keys()...) {
			_, ok := merged.Get(k)
			c.Check(ok, check.Equals, true)
		}
		c.Check(merged.Len() <= trial.a.Len()+trial.b.Len(), check.Equals, true)
		// Overrides win on every shared key.
		for _, k := range trial.b.Keys() {
			want, _ := trial.b.Get(k)
			got, _ := merged.Get(k)
			c.Check(got, check.DeepEquals, want)
		}
		// Merging with an empty set is the identity.
		c.Check(MergeParams(merged, nil).Map(), check.DeepEquals, merged.Map())
		c.Check(MergeParams(nil, merged).Map(), check.DeepEquals, merged.Map())
	}
}

func (*paramsSuite) TestParamsFromMap(c *check.C) {
	p := ParamsFromMap(map[string]interface{}{"b": 2, "a": 1, "c": 3})
	c.Check(p.Keys(), check.DeepEquals, []string{"a", "b", "c"})
}

func (*paramsSuite) TestEncode(c *check.C) {
	for _, trial := range []struct {
		p      *Params
		expect string
	}{
		{NewParams(), ""},
		{NewParams().Set("page", 1), "page=1"},
		{NewParams().Set("q", "a b&c").Set("all_ids", true), "q=a+b%26c&all_ids=true"},
		{NewParams().Set("resolve", []string{"subjects", "linked_agents"}), "resolve%5B%5D=subjects&resolve%5B%5D=linked_agents"},
		{NewParams().Set("type[]", []string{"subject"}), "type%5B%5D=subject"},
		{NewParams().Set("id_set", []int{1, 2}), "id_set%5B%5D=1&id_set%5B%5D=2"},
		{NewParams().Set("skip", nil).Set("page", int64(2)), "page=2"},
		{NewParams().Set("n", json.Number("12")).Set("f", 1.5), "n=12&f=1.5"},
		{NewParams().Set("filter", map[string]interface{}{"a": 1}), "filter=%7B%22a%22%3A1%7D"},
		{NewParams().Set("empty", []string{}), ""},
	} {
		q, err := trial.p.Encode()
		c.Check(err, check.IsNil)
		c.Check(q, check.Equals, trial.expect)
	}
}

func (*paramsSuite) TestEncodeError(c *check.C) {
	_, err := NewParams().Set("ch", make(chan int)).Encode()
	c.Check(err, check.ErrorMatches, `param "ch": .*`)
}

func (*paramsSuite) TestMarshalJSON(c *check.C) {
	p := NewParams().Set("z", 1).Set("a", []string{"x"}).Set("m", map[string]int{"k": 1}).Set("n", nil)
	buf, err := json.Marshal(p)
	c.Check(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{"z":1,"a":["x"],"m":{"k":1},"n":null}`)

	buf, err = NewParams().MarshalJSON()
	c.Check(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{}`)

	var nilp *Params
	buf, err = nilp.MarshalJSON()
	c.Check(err, check.IsNil)
	c.Check(string(buf), check.Equals, `{}`)
}

func (*paramsSuite) TestParseParams(c *check.C) {
	p, err := ParseParams([]string{"q=north pole", "page=2", "all_ids=true", `resolve=["subjects"]`, "empty=", "eq=a=b"})
	c.Assert(err, check.IsNil)
	c.Check(p.Keys(), check.DeepEquals, []string{"q", "page", "all_ids", "resolve", "empty", "eq"})
	c.Check(p.Map(), check.DeepEquals, map[string]interface{}{
		"q":       "north pole",
		"page":    json.Number("2"),
		"all_ids": true,
		"resolve": []interface{}{"subjects"},
		"empty":   "",
		"eq":      "a=b",
	})
	q, err := p.Encode()
	c.Check(err, check.IsNil)
	c.Check(q, check.Equals, "q=north+pole&page=2&all_ids=true&resolve%5B%5D=subjects&empty=&eq=a%3Db")

	for _, bad := range []string{"noequals", "=value"} {
		_, err = ParseParams([]string{bad})
		c.Check(err, check.ErrorMatches, `invalid parameter .*`)
	}
}
