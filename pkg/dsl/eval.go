package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/clipfeed/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的候选过滤表达式，使用 CEL (Common Expression Language)。
// 编译一次，可在多个请求、多个 goroutine 中复用。
//
// 表达式在召回之后、打分之前求值，因此只暴露视频本身的属性，没有分数与特征。
//
// 可用变量：
//   - item.id / item.views / item.likes / item.duration
//   - item.creator / item.hashtags（小写）/ item.uploaded_at（timestamp）
//   - label.<key>：Label 的 value，例如 label.recall_source
//   - rctx.source_kind / rctx.source_id / rctx.user_id / rctx.signal
//
// 示例：
//   - `item.duration <= 600.0`
//   - `!("nsfw" in item.hashtags)`
//   - `label.recall_source.contains("popular") || item.views > 100`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个候选求值。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 label 会报错，表达式中应先判断 label.key != null
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	item := map[string]any{"id": it.ID}
	if v := it.Video; v != nil {
		item["views"] = v.Engagement.Views
		item["likes"] = v.Engagement.Likes
		item["duration"] = v.Duration
		item["creator"] = v.Creator
		item["hashtags"] = v.LowerHashtags()
		item["uploaded_at"] = v.UploadedAt
	}

	label := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		label[k] = v.Value
	}

	rc := map[string]any{}
	if rctx != nil {
		rc["source_kind"] = string(rctx.SourceKind)
		rc["source_id"] = rctx.SourceID
		rc["user_id"] = rctx.UserID
		rc["signal"] = rctx.Signal().String()
	}

	return map[string]any{
		"item":  item,
		"label": label,
		"rctx":  rc,
	}
}
