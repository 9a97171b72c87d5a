package service

import (
	"context"
	"errors"
	"sync"

	"claimflow/config"
	"claimflow/models"

	"github.com/sirupsen/logrus"
)

type mailJob struct {
	kind string
	to   string
	send func() error
}

// MailQueue 异步邮件队列，实现 Notifier。
// 入队不阻塞，队列满或已关闭时丢弃并记录日志。
type MailQueue struct {
	mail    *EmailService
	log     logrus.FieldLogger
	workers int
	jobs    chan mailJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Notifier = (*MailQueue)(nil)

// NewMailQueue 创建邮件队列，需调用 Start 启动 worker
func NewMailQueue(mail *EmailService, cfg config.NotifyConfig, log logrus.FieldLogger) *MailQueue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &MailQueue{
		mail:    mail,
		log:     log,
		workers: workers,
		jobs:    make(chan mailJob, size),
	}
}

// Start 启动 worker
func (q *MailQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
}

func (q *MailQueue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.dispatch(job)
	}
}

func (q *MailQueue) dispatch(job mailJob) {
	entry := q.log.WithFields(logrus.Fields{"kind": job.kind, "to": job.to})
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("发送邮件 panic: %v", r)
		}
	}()

	err := job.send()
	switch {
	case err == nil:
		entry.Debug("邮件已发送")
	case errors.Is(err, ErrMailDisabled):
		entry.Debug("邮件服务未启用，跳过发送")
	default:
		entry.WithError(err).Warn("发送邮件失败")
	}
}

// Close 停止接收新任务并等待队列排空，ctx 到期时直接返回
func (q *MailQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MailQueue) enqueue(kind string, to string, send func() error) {
	if to == "" {
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	entry := q.log.WithFields(logrus.Fields{"kind": kind, "to": to})
	if q.closed {
		entry.Warn("邮件队列已关闭，丢弃通知")
		return
	}
	select {
	case q.jobs <- mailJob{kind: kind, to: to, send: send}:
	default:
		entry.Warn("邮件队列已满，丢弃通知")
	}
}

// NotifySubmitted 报销单已提交
func (q *MailQueue) NotifySubmitted(user *models.User, claim *models.Claim) {
	if user == nil || claim == nil {
		return
	}
	u, c := *user, *claim
	q.enqueue("claim_submitted", u.Email, func() error {
		return q.mail.SendClaimSubmittedEmail(u, c)
	})
}

// NotifyApprovalRequested 通知审批人
func (q *MailQueue) NotifyApprovalRequested(approver *models.User, claim *models.Claim, requesterName string) {
	if approver == nil || claim == nil {
		return
	}
	a, c := *approver, *claim
	q.enqueue("approval_request", a.Email, func() error {
		return q.mail.SendApprovalRequestEmail(a, c, requesterName)
	})
}

// NotifyFinalStatus 终审结果
func (q *MailQueue) NotifyFinalStatus(user *models.User, claim *models.Claim, status string) {
	if user == nil || claim == nil {
		return
	}
	u, c := *user, *claim
	q.enqueue("claim_status", u.Email, func() error {
		return q.mail.SendClaimStatusEmail(u, c, status)
	})
}

// NotifyAutoApproved 自动通过
func (q *MailQueue) NotifyAutoApproved(user *models.User, claim *models.Claim) {
	if user == nil || claim == nil {
		return
	}
	u, c := *user, *claim
	q.enqueue("claim_auto_approved", u.Email, func() error {
		return q.mail.SendAutoApprovalEmail(u, c)
	})
}

// NotifyAccountCreated 发送新账号凭据
func (q *MailQueue) NotifyAccountCreated(user *models.User, password string) {
	if user == nil {
		return
	}
	u := *user
	q.enqueue("account_credentials", u.Email, func() error {
		return q.mail.SendAccountCredentialsEmail(u, password)
	})
}

// NotifyRegistrationPending 通知管理员激活新账号
func (q *MailQueue) NotifyRegistrationPending(admin *models.User, newUser *models.User) {
	if admin == nil || newUser == nil {
		return
	}
	a, u := *admin, *newUser
	q.enqueue("registration_pending", a.Email, func() error {
		return q.mail.SendRegistrationApprovalEmail(a, u)
	})
}

// NotifyPasswordReset 发送重置后的密码
func (q *MailQueue) NotifyPasswordReset(user *models.User, password string) {
	if user == nil {
		return
	}
	u := *user
	q.enqueue("password_reset", u.Email, func() error {
		return q.mail.SendPasswordResetEmail(u, password)
	})
}
