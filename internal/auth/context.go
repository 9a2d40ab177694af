// ABOUTME: Operator identity carried through request handlers
// ABOUTME: Provides WithOperator/OperatorFromContext for propagating auth info via context

package auth

import "context"

// Anonymous names requests made while API auth is disabled.
const Anonymous = "anonymous"

type operatorKey struct{}

// WithOperator returns a new context carrying the operator name.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// OperatorFromContext returns the operator name, or Anonymous when none is set.
func OperatorFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok && op != "" {
		return op
	}
	return Anonymous
}
