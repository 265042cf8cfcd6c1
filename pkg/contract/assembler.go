package contract

import (
	"context"
	"io"
)

// Assembler: 将同一文件的 LineResult 线性装配为输出文本。
// 约束：
//  1. 仅对同一 FileID 装配；
//  2. 按 Index 严格升序；
//  3. 不引入跨文件状态；
//  4. 序列违规返回 ErrSeqInvalid。
type Assembler interface {
	Assemble(ctx context.Context, fileID FileID, lines []LineResult) (io.Reader, error)
}
