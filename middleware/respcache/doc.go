// Package respcache fornece o cache de respostas GET (net/http) com TTL,
// invalidação por expressão regular e estatísticas.
//
// Camadas:
//
//   - domain: Entry/Value/Stats e o contrato Store
//   - infra: MemoryStore (LRU limitado)
//   - respcache (este pacote): Cache, derivação de chave, middlewares HTTP e collector prometheus
//
// Fluxo:
//
//  1. Deriva a chave (path + query ordenada)
//  2. Hit: responde do cache com X-Cache: HIT, sem chamar o handler
//  3. Miss: chama o handler e memoriza a resposta se for 2xx e completa
//  4. Escritas 2xx (InvalidateOnWrite) invalidam a coleção correspondente
package respcache
