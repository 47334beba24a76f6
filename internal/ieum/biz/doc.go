// Package biz 实现会议文档 RAG 的业务逻辑。
//
// Ingestor 负责提取、切分、嵌入、入库和对象存储；Retriever 执行类别过滤的混合检索
// 并生成有依据的回答；Analyzer 将会议记录转换为结构化结果；MinutesGenerator
// 按坐标把新摘要写回纪要模板；Deleter 同步删除对象和索引条目。
// 所有外部依赖都以接口注入，生命周期与进程一致。
package biz
