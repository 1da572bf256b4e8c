package repository

import "errors"

// ErrStaleVersion 条件更新未命中：记录已被其他请求修改
var ErrStaleVersion = errors.New("stale version")
