package service

import (
	"ConsoleExt/internal/model"
	"ConsoleExt/pkg/errors"
)

// ResolveRecipients 解析应用的有效接收人
// 应用没有激活接收人时回退到账户本人，账户也没有手机号则属于配置错误
func ResolveRecipients(app *model.Application, owner *model.User) ([]model.Recipient, error) {
	active := make([]model.Recipient, 0, len(app.Recipients))
	for _, r := range app.Recipients {
		if r.IsActive {
			active = append(active, r)
		}
	}

	if len(active) > 0 {
		return active, nil
	}

	// 回退到账户本人
	if owner == nil || owner.Phone == "" {
		return nil, errors.RecipientUnavailable
	}

	return []model.Recipient{
		{
			Name:     owner.Name,
			Phone:    owner.Phone,
			IsActive: true,
		},
	}, nil
}
