package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegis-sign/agedcache/pkg/apierrors"
	"github.com/aegis-sign/agedcache/pkg/validator"
)

// Op 表示场景中的一个操作。
type Op string

const (
	OpPut     Op = "put"
	OpGet     Op = "get"
	OpRemove  Op = "remove"
	OpSize    Op = "size"
	OpEmpty   Op = "empty"
	OpAdvance Op = "advance"
	OpSetTime Op = "set_time"
)

// Scenario 描述一段在手动时钟上回放的缓存操作脚本。
type Scenario struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	Steps []Step `yaml:"steps"`

	start time.Time
}

// Step 是脚本中的单个步骤。expect 字段的类型随 Op 变化，解析后保存在未导出字段中。
type Step struct {
	Op        Op     `yaml:"op"`
	Key       string `yaml:"key"`
	Value     string `yaml:"value"`
	Retention string `yaml:"retention"`
	By        string `yaml:"by"`
	At        string `yaml:"at"`
	Absent    bool   `yaml:"absent"`

	expect       *yaml.Node
	retention    time.Duration
	hasRetention bool
	by           time.Duration
	at           time.Time
	wantValue    *string
	wantSize     *int
	wantEmpty    *bool
}

var stepFields = map[string]bool{
	"op": true, "key": true, "value": true, "retention": true,
	"by": true, "at": true, "absent": true, "expect": true,
}

// UnmarshalYAML 拆出 expect 节点留待 compile 按 Op 解码，其余字段常规解码，未知字段报错。
func (st *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: step must be a mapping", node.Line)
	}
	rest := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag, Line: node.Line, Column: node.Column}
	var expect *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if !stepFields[k.Value] {
			return fmt.Errorf("line %d: field %s not found in step", k.Line, k.Value)
		}
		if k.Value == "expect" {
			expect = v
			continue
		}
		rest.Content = append(rest.Content, k, v)
	}
	type plainStep Step
	var plain plainStep
	if err := rest.Decode(&plain); err != nil {
		return err
	}
	*st = Step(plain)
	st.expect = expect
	return nil
}

// Load 读取并解析场景文件。
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse 解析 YAML 场景并校验每个步骤，未知字段视为错误。
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apierrors.New(apierrors.CodeInvalidArgument, "scenario is empty")
		}
		return nil, apierrors.Wrap(apierrors.CodeInvalidArgument, "malformed scenario", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartTime 返回场景时钟的起点。
func (s *Scenario) StartTime() time.Time { return s.start }

func (s *Scenario) compile() error {
	if strings.TrimSpace(s.Name) == "" {
		s.Name = "unnamed"
	}
	s.start = time.Unix(0, 0).UTC()
	if s.Start != "" {
		start, err := time.Parse(time.RFC3339, s.Start)
		if err != nil {
			return apierrors.Wrap(apierrors.CodeInvalidArgument, "invalid start", err)
		}
		s.start = start
	}
	if len(s.Steps) == 0 {
		return apierrors.New(apierrors.CodeInvalidArgument, "scenario has no steps")
	}
	for i := range s.Steps {
		if err := s.Steps[i].compile(); err != nil {
			return apierrors.Wrap(apierrors.CodeInvalidArgument, fmt.Sprintf("step %d (%s)", i+1, s.Steps[i].Op), err)
		}
	}
	return nil
}

func (st *Step) compile() error {
	switch st.Op {
	case OpPut:
		if st.Key == "" {
			return errors.New("key is required")
		}
		if st.Retention != "" {
			d, err := validator.ParseRetention(st.Retention)
			if err != nil {
				return err
			}
			st.retention = d
			st.hasRetention = true
		}
	case OpGet:
		if st.Key == "" {
			return errors.New("key is required")
		}
		if st.expect != nil {
			if st.Absent {
				return errors.New("expect and absent are mutually exclusive")
			}
			var want string
			if err := st.expect.Decode(&want); err != nil {
				return fmt.Errorf("expect: %w", err)
			}
			st.wantValue = &want
		}
	case OpRemove:
		if st.Key == "" {
			return errors.New("key is required")
		}
	case OpSize:
		if st.expect != nil {
			var want int
			if err := st.expect.Decode(&want); err != nil {
				return fmt.Errorf("expect: %w", err)
			}
			if want < 0 {
				return fmt.Errorf("expect: size %d is negative", want)
			}
			st.wantSize = &want
		}
	case OpEmpty:
		if st.expect != nil {
			var want bool
			if err := st.expect.Decode(&want); err != nil {
				return fmt.Errorf("expect: %w", err)
			}
			st.wantEmpty = &want
		}
	case OpAdvance:
		d, err := validator.ParseRetention(st.By)
		if err != nil {
			return fmt.Errorf("by: %w", err)
		}
		st.by = d
	case OpSetTime:
		at, err := time.Parse(time.RFC3339, st.At)
		if err != nil {
			return fmt.Errorf("at: %w", err)
		}
		st.at = at
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	if st.Absent && st.Op != OpGet {
		return errors.New("absent only applies to get")
	}
	return nil
}
