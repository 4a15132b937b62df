package services

import "errors"

var (
	ErrOwnerRequired      = errors.New("缺少用户ID")
	ErrCategoryNotFound   = errors.New("分类不存在")
	ErrCardNotFound       = errors.New("卡片不存在")
	ErrDefaultImmutable   = errors.New("默认分类不允许修改名称或图标")
	ErrDefaultUndeletable = errors.New("默认分类不允许删除")
	ErrDeleteModeConflict = errors.New("删除分类时只能选择删除卡片或移动卡片中的一种")
	ErrMoveTargetInvalid  = errors.New("目标分类无效")
)
