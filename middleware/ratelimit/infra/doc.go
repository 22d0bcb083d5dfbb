// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
//   - MemoryWindowStore / RedisWindowStore: janelas fixas por categoria + cliente
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - SlotPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: estatísticas best-effort das decisões
package infra
