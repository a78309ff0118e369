package game

import (
	"context"

	"go.uber.org/zap"
)

// rollbackList 收集上传流水线已经产生的副作用，失败时按入栈的逆序执行补偿。
//
// 这不是事务：补偿本身是尽力而为的，单步补偿失败只记日志并继续执行
// 剩余步骤。进程在写入与补偿之间崩溃仍可能泄漏存储资产，日志里带上
// step 标签以便人工对账。
type rollbackList struct {
	logger *zap.SugaredLogger
	steps  []rollbackStep
}

type rollbackStep struct {
	label string
	fn    func(ctx context.Context)
}

func newRollbackList(logger *zap.SugaredLogger) *rollbackList {
	return &rollbackList{logger: logger}
}

// Add 压入一个补偿步骤，label 用于日志定位。
func (r *rollbackList) Add(label string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	r.steps = append(r.steps, rollbackStep{label: label, fn: fn})
}

// Run 逆序执行全部补偿步骤，执行后清空列表避免重复补偿。
func (r *rollbackList) Run(ctx context.Context) {
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		r.logger.Warnw("rolling back", "step", step.label)
		step.fn(ctx)
	}
	r.steps = nil
}

// Len 返回当前挂起的补偿步骤数，测试用。
func (r *rollbackList) Len() int {
	return len(r.steps)
}
