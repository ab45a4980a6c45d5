package logging

import "context"

type requestIDKey struct{}

// WithRequestID 将请求 ID 放入 ctx，供下游日志关联同一请求。
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 取出 WithRequestID 写入的请求 ID，不存在时返回空串。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
