// Package domain define os tipos do cache de respostas (Entry, Value, Stats) e o
// contrato de armazenamento (Store), sem depender de net/http.
package domain
