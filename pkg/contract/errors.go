package contract

import "errors"

// 最小错误分类（哨兵）。调用方以 errors.Is 判定，包装使用 %w。
var (
	// ErrDictionaryNotFound: 引用了注册表中不存在的词典名。
	ErrDictionaryNotFound = errors.New("dictionary not found")
	// ErrDuplicateName: 词典名已存在；注册表保持不变。
	ErrDuplicateName = errors.New("dictionary name already exists")
	// ErrReservedName: 保留名（"default"）不可由调用方加载。
	ErrReservedName = errors.New("dictionary name is reserved")
	// ErrInvalidName: 词典名为空或仅含空白。
	ErrInvalidName = errors.New("dictionary name invalid")
	// ErrSourceUnreadable: 词表来源无法读取或解析。
	ErrSourceUnreadable = errors.New("word source unreadable")
	// ErrInvalidInput: 组件入参非法（如负区间、未知工厂名）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrSeqInvalid: 装配序列违规（逆序、重叠、FileID 混入）。
	ErrSeqInvalid = errors.New("sequence invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵，如拼接不还原原文）。
	ErrInvariantViolation = errors.New("invariant violation")
)
