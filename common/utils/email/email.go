package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// Config SMTP 配置
type Config struct {
	Host     string
	Port     int    `json:",default=465"`
	Username string
	Password string
	FromName string `json:",default=活动平台"`
}

// Sender SMTP 邮件发送器
// 465 端口走 SSL 直连，其余端口走标准 smtp.SendMail
type Sender struct {
	cfg Config
}

// NewSender 创建邮件发送器
func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send 发送一封纯文本邮件
func (s *Sender) Send(to, subject, body string) error {
	// 组装邮件内容
	header := make(map[string]string)
	header["From"] = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.Username)
	header["To"] = to
	header["Subject"] = subject
	header["Content-Type"] = "text/plain; charset=UTF-8"

	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	// SSL 端口需要先建立 tls 连接
	if s.cfg.Port == 465 {
		return s.sendTLS(auth, to, message)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return smtp.SendMail(addr, auth, s.cfg.Username, []string{to}, []byte(message))
}

func (s *Sender) sendTLS(auth smtp.Auth, to, message string) error {
	tlsConfig := &tls.Config{
		ServerName: s.cfg.Host,
	}

	conn, err := tls.Dial("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port), tlsConfig)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if err = client.Auth(auth); err != nil {
		return err
	}
	if err = client.Mail(s.cfg.Username); err != nil {
		return err
	}
	if err = client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write([]byte(message)); err != nil {
		return err
	}
	return w.Close()
}
