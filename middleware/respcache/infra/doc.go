// Package infra contém os stores concretos do cache de respostas.
//
//   - MemoryStore: LRU em memória (container/list) com limite de entradas e expiração preguiçosa
package infra
