package bitrix

import (
	"fmt"
	"net/url"
	"strconv"
)

// Command builds one fully-parameterized remote method call, encoded as
// a query-like expression ("crm.product.list?select[]=ID&filter[X]=1").
type Command struct {
	method string
	params url.Values
}

// NewCommand starts a command for the given remote method.
func NewCommand(method string) *Command {
	return &Command{method: method, params: url.Values{}}
}

// Set sets a scalar parameter.
func (c *Command) Set(key, value string) *Command {
	c.params.Set(key, value)
	return c
}

// SetInt sets a scalar integer parameter.
func (c *Command) SetInt(key string, value int64) *Command {
	return c.Set(key, strconv.FormatInt(value, 10))
}

// Select appends a field to the select[] list.
func (c *Command) Select(fields ...string) *Command {
	for _, f := range fields {
		c.params.Add("select[]", f)
	}
	return c
}

// Filter sets a filter[key] parameter.
func (c *Command) Filter(key, value string) *Command {
	return c.Set("filter["+key+"]", value)
}

// Field sets a fields[key] parameter.
func (c *Command) Field(key, value string) *Command {
	return c.Set("fields["+key+"]", value)
}

// FieldList sets fields[key][i] entries for a multi-value field. This is
// the wire adapter for set-valued custom fields: the whole array is
// always written, as the store has no partial-update primitive for them.
func (c *Command) FieldList(key string, values []int64) *Command {
	for i, v := range values {
		c.Set(fmt.Sprintf("fields[%s][%d]", key, i), strconv.FormatInt(v, 10))
	}
	return c
}

// Encode renders the command string.
func (c *Command) Encode() string {
	if len(c.params) == 0 {
		return c.method
	}
	return c.method + "?" + c.params.Encode()
}

// CommandSet is an insertion-ordered collection of named commands. The
// gateway chunks it by batch limit and flattens results in this order,
// so callers can rely on result positions matching command positions.
type CommandSet struct {
	names    []string
	commands map[string]string
}

// NewCommandSet creates an empty command set.
func NewCommandSet() *CommandSet {
	return &CommandSet{commands: make(map[string]string)}
}

// Add registers a command under a unique name. Re-adding a name replaces
// the command but keeps its original position.
func (s *CommandSet) Add(name string, cmd *Command) *CommandSet {
	if _, ok := s.commands[name]; !ok {
		s.names = append(s.names, name)
	}
	s.commands[name] = cmd.Encode()
	return s
}

// Len returns the number of commands.
func (s *CommandSet) Len() int {
	return len(s.names)
}

// chunks splits the set into ordered sub-batches of at most size names.
func (s *CommandSet) chunks(size int) [][]string {
	var out [][]string
	for start := 0; start < len(s.names); start += size {
		end := start + size
		if end > len(s.names) {
			end = len(s.names)
		}
		out = append(out, s.names[start:end])
	}
	return out
}
