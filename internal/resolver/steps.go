package resolver

import "context"

type stepStatus int

const (
	stepNotFound stepStatus = iota
	stepFound
	stepFailed
)

// stepResult 是单个解析步骤的结果：命中、未命中或失败。失败携带状态码与正文，
// 供整条链耗尽时作为兜底响应。
type stepResult struct {
	status     stepStatus
	data       []byte
	statusCode int
	err        error
}

func found(data []byte, statusCode int) stepResult {
	return stepResult{status: stepFound, data: data, statusCode: statusCode}
}

func notFound(err error) stepResult {
	return stepResult{status: stepNotFound, err: err}
}

func failed(data []byte, statusCode int, err error) stepResult {
	return stepResult{status: stepFailed, data: data, statusCode: statusCode, err: err}
}

// step 是回退链中的一环。
type step struct {
	source string
	run    func(ctx context.Context) stepResult
}

// firstFound 按顺序执行 steps，遇到第一个命中立即返回；全部未命中时返回最后一次
// 失败（若从未失败则返回最后一次未命中）。
func firstFound(ctx context.Context, steps []step, observe func(string, stepResult)) (string, stepResult, bool) {
	last := notFound(nil)
	lastSource := ""
	var lastFailure *stepResult
	failureSource := ""

	for _, s := range steps {
		result := s.run(ctx)
		if observe != nil {
			observe(s.source, result)
		}
		if result.status == stepFound {
			return s.source, result, true
		}
		last, lastSource = result, s.source
		if result.status == stepFailed {
			failure := result
			lastFailure, failureSource = &failure, s.source
		}
	}

	if lastFailure != nil {
		return failureSource, *lastFailure, false
	}
	return lastSource, last, false
}
