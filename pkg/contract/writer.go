package contract

import (
	"context"
	"io"
)

// ArtifactID: 与 FileID 等价的输出工件标识（语义别名）。
type ArtifactID = FileID

// Writer: 将分词结果以流式方式写到目标介质（文件系统/标准输出）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式写入，按字节透传；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
