package rulespec

import (
	"fmt"
	"strings"
	"sync"

	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("httpmethod", isMethodToken)
	})
	return validate
}

// isMethodToken urlMethod 仅作展示，只要求是 HTTP token，不区分大小写
func isMethodToken(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

// Validate 校验单条规则的字段组合
func Validate(r NetworkRule) error {
	if err := getValidator().Struct(r); err != nil {
		return errx.Wrap(errx.CodeInvalidRule, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err), describe(err))
	}
	return nil
}

// ValidateRuleID 校验规则 ID
func ValidateRuleID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errx.Wrap(errx.CodeInvalidRule, domain.ErrInvalidRule, "规则 ID 不能为空")
	}
	return nil
}

// ValidateUnique 校验规则集合中 ID 非空且唯一
func ValidateUnique(rules []NetworkRule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := ValidateRuleID(r.RuleID); err != nil {
			return fmt.Errorf("规则 '%s': %w", r.RuleName, err)
		}
		if seen[r.RuleID] {
			return errx.Wrap(errx.CodeInvalidRule, domain.ErrDuplicateRuleID, fmt.Sprintf("规则 ID '%s' 重复", r.RuleID))
		}
		seen[r.RuleID] = true
	}
	return nil
}

// describe 把校验错误压缩成字段列表
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "规则校验失败"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+"("+fe.Tag()+")")
	}
	return "规则字段不合法: " + strings.Join(fields, ", ")
}
