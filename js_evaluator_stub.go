//go:build !js_eval

package hive

// NewJSEvaluator returns nil unless the binary is built with the js_eval tag.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
