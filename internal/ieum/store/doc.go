// Package store 提供文档检索索引的抽象与实现。
//
// SearchIndex 是索引端口，MilvusIndex 基于 Milvus 的 BM25 加稠密向量混合检索，
// MemoryIndex 是进程内实现，用于单机开发和测试。
package store
