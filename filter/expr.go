package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选候选：表达式为 true 的保留，false 的过滤。
//
//	f, _ := filter.NewExprFilter(`item.duration <= 600.0 && !("nsfw" in item.hashtags)`)
//
// 求值出错时 FilterNode 会保留该候选。
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在启动时暴露。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("candidate filter %q: %w", expr, err)
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	keep, err := f.prg.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
