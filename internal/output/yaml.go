package output

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/tinytelemetry/sift/internal/model"
	"gopkg.in/yaml.v3"
)

// YAMLWriter writes one YAML document per record. Values are tagged as
// strings so digit-only fields such as pid keep their type.
type YAMLWriter struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	enc    *yaml.Encoder
	schema model.Schema
}

// NewYAML creates a YAML document stream writer.
func NewYAML(w io.Writer, schema model.Schema) *YAMLWriter {
	bw := bufio.NewWriter(w)
	enc := yaml.NewEncoder(bw)
	enc.SetIndent(2)
	return &YAMLWriter{bw: bw, enc: enc, schema: schema}
}

func (y *YAMLWriter) Write(record *model.LogRecord) error {
	y.mu.Lock()
	defer y.mu.Unlock()

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, col := range y.schema.Columns {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: record.Field(col)},
		)
	}
	if err := y.enc.Encode(node); err != nil {
		return fmt.Errorf("output: yaml encode: %w", err)
	}
	return nil
}

func (y *YAMLWriter) Flush() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.bw.Flush()
}

func (y *YAMLWriter) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if err := y.enc.Close(); err != nil {
		return fmt.Errorf("output: yaml close: %w", err)
	}
	return y.bw.Flush()
}
