// Package domain define os tipos e contratos do SecurityGate: registros de
// token CSRF e eventos de auditoria.
//
// Não depende de net/http; os stores e sinks concretos ficam em infra.
package domain
