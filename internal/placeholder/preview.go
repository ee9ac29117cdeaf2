package placeholder

import "strconv"

// Variable 预览中的一个占位符取值
type Variable struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PreviewResult 重定向规则的交互式预览
type PreviewResult struct {
	Matched    bool       `json:"matched"`              // 示例 URL 是否匹配，不匹配时不允许保存
	Variables  []Variable `json:"variables"`            // $0..$N 的取值
	NavigateTo string     `json:"navigateTo,omitempty"` // 替换后的目标 URL
}

// Preview 在保存前展示每个 $N 的取值以及最终跳转地址
func (s *Substituter) Preview(exampleURL, pattern, template string) (*PreviewResult, error) {
	values, err := s.TestPattern(exampleURL, pattern)
	if err != nil {
		return nil, err
	}
	if values == nil {
		return &PreviewResult{Matched: false, Variables: []Variable{}}, nil
	}

	vars := make([]Variable, 0, len(values))
	for i, v := range values {
		vars = append(vars, Variable{Label: "$" + strconv.Itoa(i), Value: v})
	}
	target, err := s.Substitute(exampleURL, pattern, template)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Matched: true, Variables: vars, NavigateTo: target}, nil
}

// Preview 使用默认缓存生成预览
func Preview(exampleURL, pattern, template string) (*PreviewResult, error) {
	return defaultSubstituter.Preview(exampleURL, pattern, template)
}
