// Package vad measures signal energy ahead of recognition.
// It calibrates an ambient noise floor from the leading part of a buffer and reports
// whether the input holds anything louder than that floor.
package vad
