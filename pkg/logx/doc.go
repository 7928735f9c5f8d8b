// Package logx configures coffeebreak's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller)
//   - File and json-format output structured
//   - Sinks swappable at runtime through Service.Apply
package logx
