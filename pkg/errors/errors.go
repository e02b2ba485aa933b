package errors

import "errors"

// ErrStatusConflict 状态乐观锁冲突：课题状态已被其他操作修改
var ErrStatusConflict = errors.New("课题状态已被其他操作修改，请刷新后重试")
