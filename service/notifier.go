package service

import "claimflow/models"

// Notifier 业务通知出口。所有方法都不返回错误：通知失败只记录日志，
// 不影响已经提交的业务状态。
type Notifier interface {
	NotifySubmitted(user *models.User, claim *models.Claim)
	NotifyApprovalRequested(approver *models.User, claim *models.Claim, requesterName string)
	NotifyFinalStatus(user *models.User, claim *models.Claim, status string)
	NotifyAutoApproved(user *models.User, claim *models.Claim)
	NotifyAccountCreated(user *models.User, password string)
	NotifyRegistrationPending(admin *models.User, newUser *models.User)
	NotifyPasswordReset(user *models.User, password string)
}
