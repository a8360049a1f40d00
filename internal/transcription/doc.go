// Package transcription turns a normalized audio buffer into transcript text.
// It guards against unusable input, routes long recordings through segment-wise
// recognition, gates silent audio with an ambient calibration pass and walks an
// ordered list of engine and locale attempts with uniform error handling.
//
// Calibration is advisory: the noise floor and energy threshold it measures decide
// whether engines are called and which warnings are attached, but cloud and local
// recognizers apply their own voice detection and never receive the threshold. The
// measured profile is returned with the result for callers and logs.
package transcription
