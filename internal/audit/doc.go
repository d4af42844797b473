// Package audit normalizes npm audit reports into ranked vulnerability
// findings and applies npm audit fix while measuring its effect.
package audit
