// Package infra contém os stores de token CSRF (memória e Redis) e os sinks
// de auditoria (assíncrono e logrus).
package infra
