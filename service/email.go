package service

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"claimflow/config"
	"claimflow/models"

	"gopkg.in/gomail.v2"
)

// ErrMailDisabled 邮件服务未启用
var ErrMailDisabled = errors.New("邮件服务未启用，请配置 CLAIMFLOW_EMAIL_ENABLED=true")

// mailSender 发送邮件，*gomail.Dialer 满足该接口
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService 邮件服务
type EmailService struct {
	cfg     *config.EmailConfig
	baseURL string
	sender  mailSender
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig, baseURL string) *EmailService {
	return &EmailService{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendClaimSubmittedEmail 通知提交人报销单已提交
func (s *EmailService) SendClaimSubmittedEmail(user models.User, claim models.Claim) error {
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您的报销单 <strong>%s</strong>（金额 %s）已成功提交，正在等待审批。</p>
            <p>审批结果将通过邮件通知您。</p>`,
		esc(user.Name), esc(claim.Title), formatAmount(claim.Amount))
	return s.send(user.Email, "【报销审批系统】报销单已提交", renderMail("#2563eb", "#1d4ed8", content))
}

// SendApprovalRequestEmail 通知审批人有待审批的报销单
func (s *EmailService) SendApprovalRequestEmail(approver models.User, claim models.Claim, requesterName string) error {
	link := s.baseURL + "/dashboard"
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p><strong>%s</strong> 提交了一张报销单，需要您审批：</p>
            <div class="info">
                <p>标题：%s</p>
                <p>类型：%s</p>
                <p>金额：%s</p>
            </div>
            <p style="text-align: center;">
                <a href="%s" class="btn">前往审批</a>
            </p>`,
		esc(approver.Name), esc(requesterName), esc(claim.Title), esc(claim.Type), formatAmount(claim.Amount), link)
	return s.send(approver.Email, "【报销审批系统】待审批报销单", renderMail("#f59e0b", "#d97706", content))
}

// SendClaimStatusEmail 通知提交人报销单终审结果
func (s *EmailService) SendClaimStatusEmail(user models.User, claim models.Claim, status string) error {
	from, to := "#10b981", "#059669"
	statusText := "已通过"
	if status == models.ClaimStatusRejected {
		from, to = "#ef4444", "#dc2626"
		statusText = "已驳回"
	}
	link := fmt.Sprintf("%s/claim/%d", s.baseURL, claim.ID)
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您的报销单 <strong>%s</strong> %s。</p>
            <p style="text-align: center;">
                <a href="%s" class="btn">查看详情</a>
            </p>`,
		esc(user.Name), esc(claim.Title), statusText, link)
	subject := fmt.Sprintf("【报销审批系统】报销单%s", statusText)
	return s.send(user.Email, subject, renderMail(from, to, content))
}

// SendAutoApprovalEmail 部门未配置审批人时通知提交人已自动通过
func (s *EmailService) SendAutoApprovalEmail(user models.User, claim models.Claim) error {
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您的报销单 <strong>%s</strong>（金额 %s）已自动审批通过。</p>
            <div class="warning">
                <p>您所在的部门未配置审批人，系统已直接通过该报销单。</p>
            </div>`,
		esc(user.Name), esc(claim.Title), formatAmount(claim.Amount))
	return s.send(user.Email, "【报销审批系统】报销单已自动通过", renderMail("#10b981", "#059669", content))
}

// SendAccountCredentialsEmail 发送新账号的登录凭据
func (s *EmailService) SendAccountCredentialsEmail(user models.User, password string) error {
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您的账号已创建，登录信息如下：</p>
            <div class="code-box">
                <p>用户名：<span class="code">%s</span></p>
                <p>初始密码：<span class="code">%s</span></p>
            </div>
            <div class="warning">
                <p>⚠️ 账号需管理员激活后才能登录。</p>
                <p>⚠️ 首次登录后请尽快修改密码。</p>
            </div>`,
		esc(user.Name), esc(user.Username), esc(password))
	return s.send(user.Email, "【报销审批系统】账号登录信息", renderMail("#2563eb", "#1d4ed8", content))
}

// SendRegistrationApprovalEmail 通知管理员有新用户注册待激活
func (s *EmailService) SendRegistrationApprovalEmail(admin models.User, newUser models.User) error {
	link := s.baseURL + "/admin/users"
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>有新用户注册，等待您激活：</p>
            <div class="info">
                <p>姓名：%s</p>
                <p>邮箱：%s</p>
                <p>部门：%s</p>
            </div>
            <p style="text-align: center;">
                <a href="%s" class="btn">前往处理</a>
            </p>`,
		esc(admin.Name), esc(newUser.Name), esc(newUser.Email), esc(newUser.Department), link)
	return s.send(admin.Email, "【报销审批系统】新用户注册待激活", renderMail("#f59e0b", "#d97706", content))
}

// SendPasswordResetEmail 发送重置后的新密码
func (s *EmailService) SendPasswordResetEmail(user models.User, password string) error {
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>我们收到了您的密码重置请求，您的新密码为：</p>
            <div class="code-box">
                <span class="code">%s</span>
            </div>
            <div class="warning">
                <p>⚠️ 请登录后尽快修改密码。</p>
                <p>⚠️ 如果这不是您本人的操作，请立即联系管理员。</p>
            </div>`,
		esc(user.Name), esc(password))
	return s.send(user.Email, "【报销审批系统】密码重置", renderMail("#2563eb", "#1d4ed8", content))
}

// send 发送邮件
func (s *EmailService) send(to, subject, body string) error {
	if !s.cfg.Enabled {
		return ErrMailDisabled
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

func esc(s string) string {
	return html.EscapeString(s)
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("¥%.2f", amount)
}

// renderMail 套用统一的邮件外框
func renderMail(gradientFrom, gradientTo, content string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, %[1]s, %[2]s); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .btn { display: inline-block; background: linear-gradient(135deg, %[1]s, %[2]s); color: white !important; text-decoration: none; padding: 14px 40px; border-radius: 8px; font-weight: 600; margin: 20px 0; }
        .info { background: #f8fafc; border-radius: 8px; padding: 15px 20px; margin: 20px 0; }
        .info p { margin: 0 0 6px; }
        .code-box { background: #f0f9ff; border: 2px dashed %[1]s; border-radius: 12px; padding: 20px; text-align: center; margin: 30px 0; }
        .code { font-size: 20px; font-weight: bold; color: %[2]s; font-family: 'Courier New', monospace; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🧾 报销审批系统</h1>
        </div>
        <div class="content">%[3]s
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, gradientFrom, gradientTo, content)
}
